// Package tui provides the terminal user interface for mailpane.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mailpane/mailpane/internal/controller"
	"github.com/mailpane/mailpane/internal/state"
	"github.com/mailpane/mailpane/internal/textutil"
)

// viewLevel represents the current navigation depth.
type viewLevel int

const (
	levelList viewLevel = iota
	levelDetail
)

// Options configuration for TUI.
type Options struct {
	Version string

	// PageSize caps the number of list rows per page. Zero means the
	// page grows with the terminal.
	PageSize int
}

// Model is the main TUI model following the Elm architecture. All email
// data lives in the state store; the model holds only presentation state
// (cursor, scroll, per-row flags) plus the latest store snapshot taken
// after each dispatch.
type Model struct {
	store *state.Store
	ctrl  *controller.Controller

	// snap is the store snapshot the view renders from. Refreshed after
	// every message that may have dispatched into the store.
	snap state.AppState

	// Version info for title bar
	version string

	level viewLevel

	// List state
	cursor       int
	scrollOffset int
	items        itemStates

	// Inline filter over the list (client-side, sender and subject)
	filterInput  textinput.Model
	filterActive bool
	filterQuery  string

	// Detail view state
	detailScroll int

	// Terminal dimensions
	width  int
	height int

	// Rows visible per page
	pageSize    int
	maxPageSize int

	// Sign-in error (fatal until retried)
	err error

	// Loading spinner
	spinnerFrame  int
	spinnerActive bool

	// Flash message (temporary notification)
	flashMessage   string
	flashExpiresAt time.Time

	// Quit flag
	quitting bool
}

// New creates a new TUI model over the given store and controller.
func New(store *state.Store, ctrl *controller.Controller, opts Options) Model {
	return Model{
		store:         store,
		ctrl:          ctrl,
		snap:          store.Snapshot(),
		version:       opts.Version,
		items:         newItemStates(),
		pageSize:      20,
		maxPageSize:   opts.PageSize,
		spinnerActive: true,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.signIn(),
		spinnerTick(), // Start spinner for the initial sign-in
	)
}

// signedInMsg is sent when the sign-in attempt completes.
type signedInMsg struct {
	err error
}

// inboxLoadedMsg is sent when the email list load completes.
type inboxLoadedMsg struct {
	err error
}

// emailOpenedMsg is sent when an email detail load completes.
type emailOpenedMsg struct {
	id  string
	err error
}

// emailDeletedMsg is sent when a delete completes.
type emailDeletedMsg struct {
	id  string
	err error
}

// signedOutMsg is sent when sign-out completes.
type signedOutMsg struct {
	err error
}

// ExternalRefreshMsg tells the model that something outside the program
// (the background refresh scheduler) dispatched into the store and the
// view should re-render from a fresh snapshot.
type ExternalRefreshMsg struct{}

// flashClearMsg clears the flash message after timeout.
type flashClearMsg struct{}

// spinnerTickMsg advances the loading spinner animation.
type spinnerTickMsg struct{}

// spinnerFrames are the Braille dot animation frames for the loading spinner.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinnerInterval is how fast the spinner animates.
const spinnerInterval = 80 * time.Millisecond

// flashDuration is how long flash messages are displayed.
const flashDuration = 4 * time.Second

// signIn connects to the server in the background.
func (m Model) signIn() tea.Cmd {
	ctrl := m.ctrl
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = signedInMsg{err: fmt.Errorf("sign in panic: %v", r)}
			}
		}()
		return signedInMsg{err: ctrl.SignIn(context.Background())}
	}
}

// loadInbox fetches the email list in the background. The controller owns
// the loading flag and drops stale completions.
func (m Model) loadInbox() tea.Cmd {
	ctrl := m.ctrl
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = inboxLoadedMsg{err: fmt.Errorf("inbox load panic: %v", r)}
			}
		}()
		return inboxLoadedMsg{err: ctrl.LoadInbox(context.Background())}
	}
}

// openEmail fetches one email's detail and marks it read on the server.
func (m Model) openEmail(id string) tea.Cmd {
	ctrl := m.ctrl
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = emailOpenedMsg{id: id, err: fmt.Errorf("open panic: %v", r)}
			}
		}()
		if err := ctrl.OpenEmail(context.Background(), id); err != nil {
			return emailOpenedMsg{id: id, err: err}
		}
		// Opening implies reading. A failed flag update is not worth
		// surfacing; the open itself succeeded.
		_ = ctrl.MarkRead(context.Background(), id)
		return emailOpenedMsg{id: id}
	}
}

// deleteEmail trashes the email on the server.
func (m Model) deleteEmail(id string) tea.Cmd {
	ctrl := m.ctrl
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = emailDeletedMsg{id: id, err: fmt.Errorf("delete panic: %v", r)}
			}
		}()
		return emailDeletedMsg{id: id, err: ctrl.DeleteEmail(context.Background(), id)}
	}
}

// signOut disconnects in the background.
func (m Model) signOut() tea.Cmd {
	ctrl := m.ctrl
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = signedOutMsg{err: fmt.Errorf("sign out panic: %v", r)}
			}
		}()
		return signedOutMsg{err: ctrl.SignOut()}
	}
}

// spinnerTick returns a command that fires a spinnerTickMsg after the spinner interval.
func spinnerTick() tea.Cmd {
	return tea.Tick(spinnerInterval, func(t time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

// startSpinner returns a spinnerTick command if the spinner isn't already
// active, and marks it as active. Call this when loading begins.
func (m *Model) startSpinner() tea.Cmd {
	if m.spinnerActive {
		return nil
	}
	m.spinnerActive = true
	m.spinnerFrame = 0
	return spinnerTick()
}

// showFlash displays a temporary notification and schedules its removal.
// Multi-line or overlong text (wrapped IMAP errors, mostly) is folded into
// one bounded line so the status line never breaks the layout.
func (m Model) showFlash(text string) (Model, tea.Cmd) {
	m.flashMessage = textutil.TruncateRunes(textutil.FirstLine(text), 120)
	m.flashExpiresAt = time.Now().Add(flashDuration)
	return m, tea.Tick(flashDuration, func(t time.Time) tea.Msg {
		return flashClearMsg{}
	})
}

// refreshSnapshot pulls the latest store state and reconciles presentation
// state with it: stale item flags are pruned, the cursor is clamped, and
// the hovered flag follows the cursor.
func (m *Model) refreshSnapshot() {
	m.snap = m.store.Snapshot()

	ids := make(map[string]bool, len(m.snap.Emails))
	for _, e := range m.snap.Emails {
		ids[e.ID] = true
	}
	m.items.prune(ids)

	if n := len(m.visible()); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.clampScroll()
	m.syncHover()
}

// syncHover makes the hovered flag track the cursor row.
func (m *Model) syncHover() {
	for id, st := range m.items {
		if st.hovered {
			m.items.leave(id)
		}
	}
	if id, ok := m.cursorID(); ok {
		m.items.enter(id)
	}
}

// visible returns the emails the list renders: the full snapshot, or the
// subset matching the filter query on sender and subject.
func (m Model) visible() []state.Email {
	if m.filterQuery == "" {
		return m.snap.Emails
	}
	q := strings.ToLower(m.filterQuery)
	var out []state.Email
	for _, e := range m.snap.Emails {
		if strings.Contains(strings.ToLower(e.From), q) ||
			strings.Contains(strings.ToLower(e.FromName), q) ||
			strings.Contains(strings.ToLower(e.Subject), q) {
			out = append(out, e)
		}
	}
	return out
}

// cursorID returns the ID of the email under the cursor.
func (m Model) cursorID() (string, bool) {
	vis := m.visible()
	if m.cursor < 0 || m.cursor >= len(vis) {
		return "", false
	}
	return vis[m.cursor].ID, true
}

// listRows returns how many list entries fit on one page. The info line
// takes the last row of the page, so this is one less than pageSize.
func (m Model) listRows() int {
	rows := m.pageSize - 1
	if rows < 1 {
		rows = 1
	}
	return rows
}

// loading reports whether any fetch is in flight.
func (m Model) loading() bool {
	return m.snap.LoadingEmails || m.snap.LoadingEmail || m.items.anyBusy()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Clamp dimensions to prevent panics from strings.Repeat with negative count
		if m.width < 0 {
			m.width = 0
		}
		if m.height < 0 {
			m.height = 0
		}
		// Reserve space for: title bar (1) + stats line (1) + info line (1) + footer (1) = 4
		m.pageSize = m.height - 4
		if m.maxPageSize > 0 && m.pageSize > m.maxPageSize {
			m.pageSize = m.maxPageSize
		}
		if m.pageSize < 1 {
			m.pageSize = 1
		}
		m.clampScroll()
		return m, nil

	case signedInMsg:
		m.refreshSnapshot()
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		spinCmd := m.startSpinner()
		return m, tea.Batch(spinCmd, m.loadInbox())

	case inboxLoadedMsg:
		m.refreshSnapshot()
		if msg.err != nil {
			return m.showFlash(fmt.Sprintf("Load failed: %v", msg.err))
		}
		return m, nil

	case emailOpenedMsg:
		m.refreshSnapshot()
		if msg.err != nil {
			return m.showFlash(fmt.Sprintf("Open failed: %v", msg.err))
		}
		if m.snap.SelectedEmail != nil {
			m.level = levelDetail
			m.detailScroll = 0
		}
		return m, nil

	case emailDeletedMsg:
		if msg.err != nil {
			// The row stays; unlock it so the delete can be retried.
			m.items.endDelete(msg.id)
			m.refreshSnapshot()
			return m.showFlash(fmt.Sprintf("Delete failed: %v", msg.err))
		}
		m.items.remove(msg.id)
		m.refreshSnapshot()
		return m.showFlash("Email moved to trash")

	case signedOutMsg:
		m.refreshSnapshot()
		if msg.err != nil {
			return m.showFlash(fmt.Sprintf("Sign out failed: %v", msg.err))
		}
		return m.showFlash("Signed out")

	case ExternalRefreshMsg:
		m.refreshSnapshot()
		return m, nil

	case flashClearMsg:
		// Clear flash message if it hasn't been updated since the timer started
		if time.Now().After(m.flashExpiresAt) || m.flashExpiresAt.IsZero() {
			m.flashMessage = ""
		}
		return m, nil

	case spinnerTickMsg:
		// Only advance if still loading
		if m.loading() {
			m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
			return m, spinnerTick()
		}
		m.spinnerActive = false
		return m, nil
	}

	return m, nil
}

// handleKeyPress processes keyboard input.
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.level {
	case levelList:
		if m.filterActive {
			return m.handleFilterKeys(msg)
		}
		return m.handleListKeys(msg)
	case levelDetail:
		return m.handleDetailKeys(msg)
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.width == 0 {
		return "Loading..."
	}

	switch m.level {
	case levelList:
		return fmt.Sprintf("%s\n%s\n%s",
			m.headerView(),
			m.listView(),
			m.footerView(),
		)
	case levelDetail:
		return fmt.Sprintf("%s\n%s\n%s",
			m.headerView(),
			m.detailView(),
			m.footerView(),
		)
	}

	return ""
}
