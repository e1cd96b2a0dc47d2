// Package state holds the client-side presentation state for mailpane:
// the ordered list of emails, the currently selected email, and the
// per-collection loading flags. All mutation goes through named actions
// applied by a pure transition function; the Store serializes dispatches
// and hands out value-copy snapshots to rendering consumers.
package state

import "time"

// Email is a single message as presented in the list and detail views.
// IDs are composite "mailbox|uid" strings from the IMAP layer and are
// unique within the Emails collection.
type Email struct {
	ID       string
	From     string // sender address, lowercased
	FromName string // sender display name, may be empty
	Subject  string
	Body     string // plain text body (HTML already stripped)
	Date     time.Time
	Mailbox  string
	Seen     bool
	Size     int64
}

// AppState is the complete presentation state. It is created once per
// session, mutated exclusively through Transition, and discarded when the
// session ends. Nothing here is persisted.
type AppState struct {
	// Emails is the display-ordered message list. Order is meaningful and
	// preserved across updates.
	Emails []Email

	// SelectedEmail is the currently open email, or nil. It is a value
	// copy taken at selection time: removing the backing list entry does
	// not clear or re-synchronize it. The detail view is responsible for
	// noticing that the selected ID is no longer in Emails.
	SelectedEmail *Email

	LoadingEmails bool // list fetch in flight
	LoadingEmail  bool // single-message fetch in flight
	LoggedIn      bool
}

// clone returns a deep copy so that snapshots and transition results never
// alias the store's internal state.
func (s AppState) clone() AppState {
	out := s
	if s.Emails != nil {
		out.Emails = make([]Email, len(s.Emails))
		copy(out.Emails, s.Emails)
	}
	if s.SelectedEmail != nil {
		sel := *s.SelectedEmail
		out.SelectedEmail = &sel
	}
	return out
}

// IndexOf returns the position of the email with the given ID in Emails,
// or -1 if absent.
func (s AppState) IndexOf(id string) int {
	for i := range s.Emails {
		if s.Emails[i].ID == id {
			return i
		}
	}
	return -1
}
