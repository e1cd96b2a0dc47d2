package tui

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/mailpane/mailpane/internal/controller"
	"github.com/mailpane/mailpane/internal/state"
)

// colorProfileMu serializes tests that mutate the global lipgloss color profile.
var colorProfileMu sync.Mutex

// forceColorProfile sets lipgloss to ANSI color output for tests that assert
// on styled output. It acquires colorProfileMu to prevent data races with
// parallel tests and restores the original profile via t.Cleanup.
func forceColorProfile(t *testing.T) {
	t.Helper()
	colorProfileMu.Lock()
	orig := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.ANSI)
	t.Cleanup(func() {
		lipgloss.SetColorProfile(orig)
		colorProfileMu.Unlock()
	})
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// stubService is a controller.Service whose responses come from fields.
type stubService struct {
	emails   []state.Email
	detail   map[string]state.Email
	listErr  error
	getErr   error
	trashErr error
	markErr  error
	connErr  error
}

func (s *stubService) Connect(ctx context.Context) error { return s.connErr }

func (s *stubService) ListEmails(ctx context.Context) ([]state.Email, error) {
	return s.emails, s.listErr
}

func (s *stubService) GetEmail(ctx context.Context, id string) (state.Email, error) {
	if s.getErr != nil {
		return state.Email{}, s.getErr
	}
	e, ok := s.detail[id]
	if !ok {
		return state.Email{}, errors.New("not found")
	}
	return e, nil
}

func (s *stubService) TrashEmail(ctx context.Context, id string) error { return s.trashErr }
func (s *stubService) MarkRead(ctx context.Context, id string) error   { return s.markErr }
func (s *stubService) Close() error                                    { return nil }

// mapOf keys emails by ID for stubService detail lookups.
func mapOf(emails ...state.Email) map[string]state.Email {
	m := make(map[string]state.Email, len(emails))
	for _, e := range emails {
		m[e.ID] = e
	}
	return m
}

// testEmail builds an email fixture.
func testEmail(id, from, subject, body string) state.Email {
	return state.Email{
		ID:      id,
		From:    from,
		Subject: subject,
		Body:    body,
		Date:    time.Now().Add(-48 * time.Hour),
		Mailbox: "INBOX",
		Size:    2048,
	}
}

// TestModelBuilder helps construct Model instances for testing.
type TestModelBuilder struct {
	emails   []state.Email
	selected *state.Email
	loggedIn bool
	svc      *stubService
	width    int
	height   int
	level    viewLevel
	cursor   int
}

func NewBuilder() *TestModelBuilder {
	return &TestModelBuilder{
		width:    100,
		height:   24,
		loggedIn: true,
	}
}

func (b *TestModelBuilder) WithEmails(emails ...state.Email) *TestModelBuilder {
	b.emails = emails
	return b
}

func (b *TestModelBuilder) WithSelected(e state.Email) *TestModelBuilder {
	b.selected = &e
	return b
}

func (b *TestModelBuilder) WithLoggedIn(loggedIn bool) *TestModelBuilder {
	b.loggedIn = loggedIn
	return b
}

func (b *TestModelBuilder) WithService(svc *stubService) *TestModelBuilder {
	b.svc = svc
	return b
}

func (b *TestModelBuilder) WithSize(width, height int) *TestModelBuilder {
	b.width = width
	b.height = height
	return b
}

func (b *TestModelBuilder) WithLevel(level viewLevel) *TestModelBuilder {
	b.level = level
	return b
}

func (b *TestModelBuilder) WithCursor(cursor int) *TestModelBuilder {
	b.cursor = cursor
	return b
}

// Build assembles the store, controller, and model, and delivers the
// initial window size.
func (b *TestModelBuilder) Build() Model {
	store := state.NewStore(state.AppState{
		Emails:        b.emails,
		SelectedEmail: b.selected,
		LoggedIn:      b.loggedIn,
	})
	svc := b.svc
	if svc == nil {
		svc = &stubService{emails: b.emails}
	}
	ctrl := controller.New(store, svc)
	m := New(store, ctrl, Options{Version: "test123"})
	m.level = b.level

	sized, _ := m.Update(tea.WindowSizeMsg{Width: b.width, Height: b.height})
	m = sized.(Model)
	m.cursor = b.cursor
	m.refreshSnapshot()
	return m
}

// newTestWiring returns a bare store and controller for tests that build
// the model by hand.
func newTestWiring(t *testing.T) (*state.Store, *controller.Controller) {
	t.Helper()
	store := state.NewStore(state.AppState{})
	return store, controller.New(store, &stubService{})
}

// press delivers a key to the model and returns the updated model and command.
func press(t *testing.T, m Model, key string) (Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

// cmdTimeout bounds how long drain waits for a single command. Fetch
// commands return immediately; anything slower is a timer and is dropped.
const cmdTimeout = 500 * time.Millisecond

// drain runs a command synchronously and feeds resulting messages back
// into the model until no command remains. Batched commands are executed
// in order. Animation and flash timers are dropped so tests stay fast and
// deterministic.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}

		msgCh := make(chan tea.Msg, 1)
		go func() { msgCh <- c() }()
		var msg tea.Msg
		select {
		case msg = <-msgCh:
		case <-time.After(cmdTimeout):
			continue // long-running timer, drop it
		}
		if msg == nil {
			continue
		}

		switch msg.(type) {
		case tea.BatchMsg:
			queue = append(queue, msg.(tea.BatchMsg)...)
			continue
		case spinnerTickMsg, flashClearMsg:
			// Timers; tests assert on state, not animation.
			continue
		}

		updated, next := m.Update(msg)
		m = updated.(Model)
		queue = append(queue, next)
	}
	return m
}
