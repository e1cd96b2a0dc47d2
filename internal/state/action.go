package state

import (
	"errors"
	"fmt"
)

// ErrUnknownAction is returned when Transition receives an action it has no
// transition for. This signals a programming error upstream; the returned
// state is the input state, untouched.
var ErrUnknownAction = errors.New("unknown action")

// Action is a named, immutable instruction describing one state change.
// The set of actions is closed: only types in this package implement it.
type Action interface {
	// Name identifies the action in errors and logs.
	Name() string

	isAction()
}

// SetLoggedIn sets the session presence flag.
type SetLoggedIn struct {
	LoggedIn bool
}

// SetLoggedOut clears the session presence flag. It deliberately does NOT
// clear Emails or SelectedEmail; callers wanting a full wipe must dispatch
// ClearEmails and SetSelectedEmail{nil} themselves.
type SetLoggedOut struct{}

// SetLoadingEmails sets the list-fetch loading flag.
type SetLoadingEmails struct {
	Loading bool
}

// SetLoadingEmail sets the single-message-fetch loading flag.
type SetLoadingEmail struct {
	Loading bool
}

// SetEmails replaces the email list wholesale. SelectedEmail is untouched.
type SetEmails struct {
	Emails []Email
}

// ClearEmails empties the email list.
type ClearEmails struct{}

// RemoveEmail removes the entry with the given ID. Absent ID is a silent
// no-op: the entry may already have been removed by a concurrent
// completion. SelectedEmail is never modified, even when it references the
// removed entry.
type RemoveEmail struct {
	ID string
}

// UpdateEmail merges the patch into the entry with the given ID, leaving
// all other entries untouched. Absent ID is a silent no-op.
type UpdateEmail struct {
	ID    string
	Patch EmailPatch
}

// SetSelectedEmail replaces the selected email entirely. A nil Email
// clears the selection.
type SetSelectedEmail struct {
	Email *Email
}

// EmailPatch is a partial Email: nil fields are left unchanged by
// UpdateEmail.
type EmailPatch struct {
	Subject *string
	Body    *string
	Seen    *bool
	Mailbox *string
}

func (SetLoggedIn) Name() string      { return "setLoggedIn" }
func (SetLoggedOut) Name() string     { return "setLoggedOut" }
func (SetLoadingEmails) Name() string { return "setLoadingEmails" }
func (SetLoadingEmail) Name() string  { return "setLoadingEmail" }
func (SetEmails) Name() string        { return "setEmails" }
func (ClearEmails) Name() string      { return "clearEmails" }
func (RemoveEmail) Name() string      { return "removeEmail" }
func (UpdateEmail) Name() string      { return "updateEmail" }
func (SetSelectedEmail) Name() string { return "setSelectedEmail" }

func (SetLoggedIn) isAction()      {}
func (SetLoggedOut) isAction()     {}
func (SetLoadingEmails) isAction() {}
func (SetLoadingEmail) isAction()  {}
func (SetEmails) isAction()        {}
func (ClearEmails) isAction()      {}
func (RemoveEmail) isAction()      {}
func (UpdateEmail) isAction()      {}
func (SetSelectedEmail) isAction() {}

// Transition maps (state, action) to the next state. It is pure: the input
// state is never mutated, and the result shares no mutable memory with it.
// An unrecognized action returns the input state and ErrUnknownAction; a
// partially-applied or best-guess state is never returned.
func Transition(s AppState, a Action) (AppState, error) {
	next := s.clone()

	switch a := a.(type) {
	case SetLoggedIn:
		next.LoggedIn = a.LoggedIn

	case SetLoggedOut:
		next.LoggedIn = false

	case SetLoadingEmails:
		next.LoadingEmails = a.Loading

	case SetLoadingEmail:
		next.LoadingEmail = a.Loading

	case SetEmails:
		next.Emails = make([]Email, len(a.Emails))
		copy(next.Emails, a.Emails)

	case ClearEmails:
		next.Emails = nil

	case RemoveEmail:
		if i := next.IndexOf(a.ID); i >= 0 {
			next.Emails = append(next.Emails[:i], next.Emails[i+1:]...)
		}

	case UpdateEmail:
		if i := next.IndexOf(a.ID); i >= 0 {
			next.Emails[i] = a.Patch.applyTo(next.Emails[i])
		}

	case SetSelectedEmail:
		if a.Email != nil {
			sel := *a.Email
			next.SelectedEmail = &sel
		} else {
			next.SelectedEmail = nil
		}

	default:
		return s, fmt.Errorf("%w: %s", ErrUnknownAction, a.Name())
	}

	return next, nil
}

// applyTo merges the patch into a copy of e.
func (p EmailPatch) applyTo(e Email) Email {
	if p.Subject != nil {
		e.Subject = *p.Subject
	}
	if p.Body != nil {
		e.Body = *p.Body
	}
	if p.Seen != nil {
		e.Seen = *p.Seen
	}
	if p.Mailbox != nil {
		e.Mailbox = *p.Mailbox
	}
	return e
}
