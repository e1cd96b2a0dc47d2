package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// handleListKeys handles keys on the email list.
func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		m.moveCursor(-1)
		return m, nil

	case "down", "j":
		m.moveCursor(1)
		return m, nil

	case "pgup", "ctrl+u":
		m.moveCursor(-m.pageSize)
		return m, nil

	case "pgdown", "ctrl+d":
		m.moveCursor(m.pageSize)
		return m, nil

	case "home", "g":
		m.moveCursor(-len(m.visible()))
		return m, nil

	case "end", "G":
		m.moveCursor(len(m.visible()))
		return m, nil

	// Open the inline filter bar
	case "/":
		m.filterActive = true
		m.filterInput = textinput.New()
		m.filterInput.Placeholder = "filter by sender or subject..."
		m.filterInput.CharLimit = 100
		m.filterInput.Width = 40
		if m.filterQuery != "" {
			m.filterInput.SetValue(m.filterQuery)
		}
		m.filterInput.Focus()
		return m, textinput.Blink

	// Clear an applied filter
	case "esc":
		if m.filterQuery != "" {
			m.clearFilter()
		}
		return m, nil

	// Open the email under the cursor
	case "enter":
		if id, ok := m.cursorID(); ok {
			if m.items.get(id).busy {
				return m, nil // row locked while its delete is in flight
			}
			spinCmd := m.startSpinner()
			return m, tea.Batch(spinCmd, m.openEmail(id))
		}
		return m, nil

	// Toggle the body preview under the row
	case "e", " ":
		if id, ok := m.cursorID(); ok {
			m.items.toggleExpanded(id)
			m.clampScroll()
		}
		return m, nil

	// Delete the email under the cursor
	case "d":
		if id, ok := m.cursorID(); ok {
			if !m.items.beginDelete(id) {
				return m, nil // already deleting
			}
			spinCmd := m.startSpinner()
			return m, tea.Batch(spinCmd, m.deleteEmail(id))
		}
		return m, nil

	// Refresh the list
	case "r":
		if !m.snap.LoggedIn {
			spinCmd := m.startSpinner()
			return m, tea.Batch(spinCmd, m.signIn())
		}
		spinCmd := m.startSpinner()
		return m, tea.Batch(spinCmd, m.loadInbox())

	// Sign out (or back in)
	case "s":
		if m.snap.LoggedIn {
			return m, m.signOut()
		}
		spinCmd := m.startSpinner()
		return m, tea.Batch(spinCmd, m.signIn())
	}

	return m, nil
}

// handleFilterKeys handles keys while the inline filter bar is focused.
// The filter applies live as the query is typed.
func (m Model) handleFilterKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "enter":
		// Keep the filter applied, return focus to the list.
		m.filterActive = false
		m.filterInput.Blur()
		return m, nil

	case "esc":
		m.clearFilter()
		return m, nil
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	if q := m.filterInput.Value(); q != m.filterQuery {
		m.filterQuery = q
		m.cursor = 0
		m.scrollOffset = 0
		m.syncHover()
	}
	return m, cmd
}

// clearFilter drops the filter and restores the full list.
func (m *Model) clearFilter() {
	m.filterActive = false
	m.filterQuery = ""
	m.filterInput.Blur()
	m.filterInput.SetValue("")
	m.cursor = 0
	m.scrollOffset = 0
	m.syncHover()
}

// handleDetailKeys handles keys on the email detail view.
func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc", "q":
		m.ctrl.CloseEmail()
		m.refreshSnapshot()
		m.level = levelList
		return m, nil

	case "up", "k":
		if m.detailScroll > 0 {
			m.detailScroll--
		}
		return m, nil

	case "down", "j":
		m.detailScroll++
		m.clampDetailScroll()
		return m, nil

	case "pgup", "ctrl+u":
		m.detailScroll -= m.pageSize
		if m.detailScroll < 0 {
			m.detailScroll = 0
		}
		return m, nil

	case "pgdown", "ctrl+d":
		m.detailScroll += m.pageSize
		m.clampDetailScroll()
		return m, nil

	case "home", "g":
		m.detailScroll = 0
		return m, nil

	// Delete the open email. The row is removed from the list but the
	// detail keeps showing the now-dangling selection with a notice.
	case "d":
		if m.snap.SelectedEmail == nil {
			return m, nil
		}
		id := m.snap.SelectedEmail.ID
		if !m.items.beginDelete(id) {
			return m, nil
		}
		spinCmd := m.startSpinner()
		return m, tea.Batch(spinCmd, m.deleteEmail(id))
	}

	return m, nil
}

// moveCursor moves the list cursor by delta, keeping it in range and on
// screen, and updates the hovered row.
func (m *Model) moveCursor(delta int) {
	vis := m.visible()
	if len(vis) == 0 {
		return
	}
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(vis) {
		m.cursor = len(vis) - 1
	}
	m.clampScroll()
	m.syncHover()
}

// clampScroll keeps the cursor row within the rendered window, which is
// listRows entries tall (the info line takes the last page row). Scrolling
// is entry-based; expanded bodies take extra lines but do not affect the
// scroll arithmetic.
func (m *Model) clampScroll() {
	rows := m.listRows()
	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	}
	if m.cursor >= m.scrollOffset+rows {
		m.scrollOffset = m.cursor - rows + 1
	}
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

// clampDetailScroll keeps the detail scroll within the body line count.
func (m *Model) clampDetailScroll() {
	maxScroll := len(m.detailBodyLines()) - 1
	if maxScroll < 0 {
		maxScroll = 0
	}
	if m.detailScroll > maxScroll {
		m.detailScroll = maxScroll
	}
	if m.detailScroll < 0 {
		m.detailScroll = 0
	}
}
