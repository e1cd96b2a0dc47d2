package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mailpane/mailpane/internal/textutil"
)

// Monochrome theme - adaptive for light and dark terminals
var (
	bgBase   = lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#000000"}
	bgAlt    = lipgloss.AdaptiveColor{Light: "#f0f0f0", Dark: "#181818"}
	bgCursor = lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#282828"}

	// Title bar style - bold with visible background
	titleBarStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#333333"}).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"}).
			Padding(0, 1)

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"}).
			Background(bgBase).
			Padding(0, 1)

	// Spinner style - NOT faint so it's visible
	spinnerStyle = lipgloss.NewStyle().
			Bold(true).
			Background(bgBase)

	// Separator line style for under headers
	separatorStyle = lipgloss.NewStyle().
			Faint(true).
			Background(bgBase)

	// Cursor row: subtle lighter background
	cursorRowStyle = lipgloss.NewStyle().
			Background(bgCursor)

	// Unread rows: bold
	unreadRowStyle = lipgloss.NewStyle().
			Bold(true).
			Background(bgBase)

	// Normal rows need background to clear old content
	normalRowStyle = lipgloss.NewStyle().
			Background(bgBase)

	// Alternating rows: very subtle gray background
	altRowStyle = lipgloss.NewStyle().
			Background(bgAlt)

	// Body preview lines under an expanded row
	previewStyle = lipgloss.NewStyle().
			Faint(true).
			Background(bgBase)

	// Busy rows: faint while the delete is in flight
	busyRowStyle = lipgloss.NewStyle().
			Faint(true).
			Background(bgBase)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"}).
			Background(bgBase).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Background(bgBase)

	loadingStyle = lipgloss.NewStyle().
			Italic(true).
			Background(bgBase)

	noticeStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#996600", Dark: "#ffcc00"}).
			Background(bgBase)

	flashStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#996600", Dark: "#ffcc00"}).
			Background(bgBase)
)

// metaWidth is the width of the right-hand column on list rows (timestamp,
// delete hint, or busy indicator).
const metaWidth = 12

// fromWidth is the width of the sender column on list rows.
const fromWidth = 24

// buildTitleBar builds the title bar line (line 1 of the header).
func (m Model) buildTitleBar() string {
	titleText := "mailpane"
	if m.version != "" && m.version != "dev" && m.version != "unknown" {
		titleText = fmt.Sprintf("mailpane [%s]", m.version)
	}

	var sessionStr string
	if m.snap.LoggedIn {
		sessionStr = "Inbox"
	} else {
		sessionStr = "signed out"
	}

	line := fmt.Sprintf("%s - %s", titleText, sessionStr)
	return titleBarStyle.Render(padRight(line, m.width-2)) // -2 for padding
}

// buildStatsString builds the stats summary for the header.
func (m Model) buildStatsString() string {
	unread := 0
	for _, e := range m.snap.Emails {
		if !e.Seen {
			unread++
		}
	}
	if m.filterQuery != "" {
		return fmt.Sprintf("%d of %d emails | %d unread", len(m.visible()), len(m.snap.Emails), unread)
	}
	return fmt.Sprintf("%d emails | %d unread", len(m.snap.Emails), unread)
}

// headerView renders a two-level header:
// Line 1: mailpane [version] - session
// Line 2: view label | stats
func (m Model) headerView() string {
	line1 := m.buildTitleBar()

	var label string
	switch m.level {
	case levelList:
		label = "Inbox"
	case levelDetail:
		subject := ""
		if m.snap.SelectedEmail != nil {
			subject = m.snap.SelectedEmail.Subject
		}
		label = fmt.Sprintf("Email: %s", truncateRunes(subject, 50))
	}

	labelStyled := statsStyle.Render(" " + label + " ")
	statsStyled := statsStyle.Render(m.buildStatsString() + " ")
	gap := m.width - lipgloss.Width(labelStyled) - lipgloss.Width(statsStyled)
	if gap < 0 {
		gap = 0
	}
	line2 := labelStyled + strings.Repeat(" ", gap) + statsStyled

	return line1 + "\n" + line2
}

// listView renders the email list. Each email takes one row plus, when its
// body preview is expanded, up to two clamped body lines beneath it.
func (m Model) listView() string {
	if m.err != nil {
		return m.fillScreen(errorStyle.Render(padRight(fmt.Sprintf("Error: %v (r to retry)", m.err), m.width)), 1)
	}

	if len(m.snap.Emails) == 0 {
		if m.snap.LoadingEmails || !m.snap.LoggedIn {
			return m.fillScreen(loadingStyle.Render(padRight(m.spinnerIndicator()+" Loading inbox...", m.width)), 1)
		}
		return m.fillScreen(normalRowStyle.Render(padRight("No emails", m.width)), 1)
	}

	vis := m.visible()
	if len(vis) == 0 {
		return m.fillScreen(normalRowStyle.Render(padRight(fmt.Sprintf("No emails match %q", m.filterQuery), m.width)), 1)
	}

	subjectWidth := m.width - fromWidth - metaWidth - 8
	if subjectWidth < 20 {
		subjectWidth = 20
	}

	var sb strings.Builder
	linesUsed := 0
	maxLines := m.listRows()

	for i := m.scrollOffset; i < len(vis) && linesUsed < maxLines; i++ {
		email := vis[i]
		st := m.items.get(email.ID)
		isCursor := i == m.cursor

		var indicator string
		if isCursor {
			indicator = cursorRowStyle.Render("▶ ")
		} else if i%2 == 0 {
			indicator = normalRowStyle.Render("  ")
		} else {
			indicator = altRowStyle.Render("  ")
		}

		unreadMark := " "
		if !email.Seen {
			unreadMark = "●"
		}

		from := truncateRunes(senderLabel(email), fromWidth)
		from = fmt.Sprintf("%-*s", fromWidth, from)

		subject := truncateRunes(email.Subject, subjectWidth)
		subject = fmt.Sprintf("%-*s", subjectWidth, subject)

		// Right-hand column precedence: a delete in flight outranks the
		// hover hint, which outranks the timestamp.
		var meta string
		switch {
		case st.busy:
			meta = m.spinnerIndicator() + " deleting"
		case st.hovered:
			meta = "d to delete"
		default:
			meta = relativeTime(email.Date, time.Now())
		}
		meta = fmt.Sprintf("%*s", metaWidth, truncateRunes(meta, metaWidth))

		line := fmt.Sprintf("%s %s  %s  %s", unreadMark, from, subject, meta)

		var style lipgloss.Style
		switch {
		case st.busy:
			style = busyRowStyle
		case isCursor:
			style = cursorRowStyle
		case !email.Seen:
			style = unreadRowStyle
		case i%2 == 0:
			style = normalRowStyle
		default:
			style = altRowStyle
		}

		sb.WriteString(indicator)
		sb.WriteString(style.Render(padRight(line, m.width-2)))
		sb.WriteString("\n")
		linesUsed++

		if st.bodyExpanded && linesUsed < maxLines {
			for _, bodyLine := range clampLines(textutil.Preview(email.Body), m.width-6, 2) {
				if linesUsed >= maxLines {
					break
				}
				sb.WriteString(previewStyle.Render(padRight("    "+bodyLine, m.width)))
				sb.WriteString("\n")
				linesUsed++
			}
		}
	}

	// Fill remaining space
	for ; linesUsed < maxLines; linesUsed++ {
		sb.WriteString(normalRowStyle.Render(strings.Repeat(" ", m.width)))
		sb.WriteString("\n")
	}

	sb.WriteString(m.renderInfoLine())

	return sb.String()
}

// detailBodyLines returns the wrapped body of the selected email.
func (m Model) detailBodyLines() []string {
	if m.snap.SelectedEmail == nil {
		return nil
	}
	width := m.width - 2
	if width < 20 {
		width = 20
	}
	return wrapText(m.snap.SelectedEmail.Body, width)
}

// selectedInList reports whether the selected email is still present in
// the email list.
func (m Model) selectedInList() bool {
	if m.snap.SelectedEmail == nil {
		return false
	}
	return m.snap.IndexOf(m.snap.SelectedEmail.ID) >= 0
}

// detailView renders the open email.
func (m Model) detailView() string {
	sel := m.snap.SelectedEmail

	if sel == nil {
		if m.snap.LoadingEmail {
			return m.fillScreen(loadingStyle.Render(padRight(m.spinnerIndicator()+" Loading email...", m.width)), 1)
		}
		return m.fillScreen(normalRowStyle.Render(padRight("No email selected", m.width)), 1)
	}

	var sb strings.Builder
	headerLines := 0

	writeHeader := func(line string, style lipgloss.Style) {
		sb.WriteString(style.Render(padRight(line, m.width)))
		sb.WriteString("\n")
		headerLines++
	}

	from := sel.From
	if sel.FromName != "" {
		from = fmt.Sprintf("%s <%s>", sel.FromName, sel.From)
	}
	writeHeader("From:    "+truncateRunes(from, m.width-9), unreadRowStyle)
	writeHeader("Date:    "+sel.Date.Format("Mon, 2 Jan 2006 15:04"), normalRowStyle)
	writeHeader("Subject: "+truncateRunes(sel.Subject, m.width-9), unreadRowStyle)
	if sel.Size > 0 {
		writeHeader(fmt.Sprintf("Size:    %s", formatBytes(sel.Size)), normalRowStyle)
	}
	if !m.selectedInList() {
		// The email was removed from the list while open (deleted here or
		// elsewhere). Keep showing it, but say so.
		writeHeader(noticeStyle.Render("This email is no longer in the inbox"), normalRowStyle)
	}
	writeHeader(strings.Repeat("─", m.width), separatorStyle)

	// Body with scrolling
	bodyLines := m.detailBodyLines()
	bodyPageSize := m.pageSize - headerLines - 1 // leave room for the info line
	if bodyPageSize < 1 {
		bodyPageSize = 1
	}

	start := m.detailScroll
	if start >= len(bodyLines) {
		start = len(bodyLines) - 1
	}
	if start < 0 {
		start = 0
	}
	end := start + bodyPageSize
	if end > len(bodyLines) {
		end = len(bodyLines)
	}

	for _, line := range bodyLines[start:end] {
		sb.WriteString(normalRowStyle.Render(padRight(line, m.width)))
		sb.WriteString("\n")
	}

	// Fill remaining space
	for i := end - start; i < bodyPageSize; i++ {
		sb.WriteString(normalRowStyle.Render(strings.Repeat(" ", m.width)))
		sb.WriteString("\n")
	}

	sb.WriteString(m.renderInfoLine())

	return sb.String()
}

// footerView renders the footer with keybindings.
func (m Model) footerView() string {
	var keys []string
	var posStr string

	switch m.level {
	case levelList:
		keys = []string{
			"↑/k ↓/j move",
			"Enter open",
			"e expand",
			"d delete",
			"/ filter",
			"r refresh",
			"s sign out",
			"q quit",
		}
		if n := len(m.visible()); n > 0 {
			posStr = fmt.Sprintf(" %d/%d ", m.cursor+1, n)
		}
	case levelDetail:
		keys = []string{
			"↑/↓ scroll",
			"d delete",
			"Esc back",
		}
		bodyLines := m.detailBodyLines()
		if len(bodyLines) > 0 {
			posStr = fmt.Sprintf(" %d/%d ", m.detailScroll+1, len(bodyLines))
		}
	}

	keysStr := strings.Join(keys, " │ ")

	gap := m.width - lipgloss.Width(keysStr) - lipgloss.Width(posStr) - 2
	if gap < 0 {
		gap = 0
	}

	return footerStyle.Render(keysStr + strings.Repeat(" ", gap) + posStr)
}

// spinnerIndicator returns the current spinner frame string.
func (m Model) spinnerIndicator() string {
	if m.spinnerFrame < len(spinnerFrames) {
		return spinnerFrames[m.spinnerFrame]
	}
	return spinnerFrames[0]
}

// renderInfoLine renders the info/notification line above the footer:
// flash message, right-aligned loading spinner, or blank.
func (m Model) renderInfoLine() string {
	contentWidth := m.width - 2
	if contentWidth < 1 {
		contentWidth = 1
	}

	content := ""
	switch {
	case m.filterActive:
		content = "/" + m.filterInput.View()
	case m.flashMessage != "":
		content = flashStyle.Render(m.flashMessage)
	case m.filterQuery != "":
		content = flashStyle.Render(fmt.Sprintf("filter: %q (esc to clear)", m.filterQuery))
	}

	if m.loading() {
		indicator := spinnerStyle.Render(m.spinnerIndicator())
		gap := contentWidth - lipgloss.Width(content) - lipgloss.Width(indicator)
		if gap < 1 {
			gap = 1
		}
		content += strings.Repeat(" ", gap) + indicator
	}

	if content == "" {
		return statsStyle.Render(strings.Repeat(" ", contentWidth))
	}
	return statsStyle.Render(padRight(content, contentWidth))
}

// fillScreen fills the remaining screen space with blank lines, ending
// with the info line.
func (m Model) fillScreen(content string, usedLines int) string {
	// Guard against zero/negative width (can happen before first resize)
	if m.width <= 0 {
		return content + "\n"
	}

	var sb strings.Builder
	sb.WriteString(content)
	sb.WriteString("\n")
	for i := usedLines; i < m.pageSize-1; i++ {
		sb.WriteString(normalRowStyle.Render(strings.Repeat(" ", m.width)))
		sb.WriteString("\n")
	}
	sb.WriteString(m.renderInfoLine())
	return sb.String()
}
