package state

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func testEmail(id, subject string) Email {
	return Email{
		ID:      id,
		From:    "alice@example.com",
		Subject: subject,
		Body:    "body of " + id,
		Date:    time.Date(2026, 3, 14, 9, 26, 0, 0, time.UTC),
		Mailbox: "INBOX",
	}
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestTransition_Flags(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		check  func(t *testing.T, s AppState)
	}{
		{"setLoggedIn true", SetLoggedIn{LoggedIn: true}, func(t *testing.T, s AppState) {
			if !s.LoggedIn {
				t.Error("expected LoggedIn true")
			}
		}},
		{"setLoadingEmails true", SetLoadingEmails{Loading: true}, func(t *testing.T, s AppState) {
			if !s.LoadingEmails {
				t.Error("expected LoadingEmails true")
			}
		}},
		{"setLoadingEmail true", SetLoadingEmail{Loading: true}, func(t *testing.T, s AppState) {
			if !s.LoadingEmail {
				t.Error("expected LoadingEmail true")
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Transition(AppState{}, tt.action)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, next)
		})
	}
}

func TestTransition_SetEmailsDoesNotTouchSelection(t *testing.T) {
	sel := testEmail("1", "selected")
	s := AppState{SelectedEmail: &sel}

	next, err := Transition(s, SetEmails{Emails: []Email{testEmail("2", "two")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.SelectedEmail == nil || next.SelectedEmail.ID != "1" {
		t.Errorf("SetEmails modified SelectedEmail: %+v", next.SelectedEmail)
	}
	if len(next.Emails) != 1 || next.Emails[0].ID != "2" {
		t.Errorf("expected emails [2], got %+v", next.Emails)
	}
}

func TestTransition_RemoveEmailIdempotent(t *testing.T) {
	s := AppState{Emails: []Email{testEmail("1", "one"), testEmail("2", "two")}}

	once, err := Transition(s, RemoveEmail{ID: "1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	twice, err := Transition(once, RemoveEmail{ID: "1"})
	if err != nil {
		t.Fatalf("unexpected error on repeat removal: %v", err)
	}

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second removeEmail was not a no-op (-first +second):\n%s", diff)
	}
	if len(twice.Emails) != 1 || twice.Emails[0].ID != "2" {
		t.Errorf("expected emails [2], got %+v", twice.Emails)
	}
}

func TestTransition_RemoveEmailLeavesSelectionDangling(t *testing.T) {
	// Intentional stale-reference behavior: removing the selected email's
	// backing entry must not clear the selection. The detail view handles
	// the dangling reference itself.
	sel := testEmail("1", "one")
	s := AppState{
		Emails:        []Email{testEmail("1", "one"), testEmail("2", "two")},
		SelectedEmail: &sel,
	}

	next, err := Transition(s, RemoveEmail{ID: "1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(next.Emails) != 1 || next.Emails[0].ID != "2" {
		t.Errorf("expected emails [2], got %+v", next.Emails)
	}
	if next.SelectedEmail == nil || next.SelectedEmail.ID != "1" {
		t.Errorf("expected SelectedEmail to remain {id:1}, got %+v", next.SelectedEmail)
	}
}

func TestTransition_UpdateEmailPatchesOnlyNamedFields(t *testing.T) {
	s := AppState{Emails: []Email{testEmail("1", "one"), testEmail("2", "two")}}

	next, err := Transition(s, UpdateEmail{ID: "1", Patch: EmailPatch{Subject: strPtr("X")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := testEmail("1", "X")
	if diff := cmp.Diff(want, next.Emails[0]); diff != "" {
		t.Errorf("patched entry mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(s.Emails[1], next.Emails[1]); diff != "" {
		t.Errorf("unrelated entry changed (-want +got):\n%s", diff)
	}
}

func TestTransition_UpdateEmailAbsentIDIsNoop(t *testing.T) {
	s := AppState{Emails: []Email{testEmail("1", "one")}}

	next, err := Transition(s, UpdateEmail{ID: "missing", Patch: EmailPatch{Seen: boolPtr(true)}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(s, next); diff != "" {
		t.Errorf("update of absent id changed state (-want +got):\n%s", diff)
	}
}

func TestTransition_SetLoggedOutKeepsEmailsAndSelection(t *testing.T) {
	// Regression guard for the documented asymmetry: sign-out does not
	// clear the list or the selection.
	sel := testEmail("1", "one")
	s := AppState{
		Emails:        []Email{testEmail("1", "one")},
		SelectedEmail: &sel,
		LoggedIn:      true,
	}

	next, err := Transition(s, SetLoggedOut{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.LoggedIn {
		t.Error("expected LoggedIn false")
	}
	if diff := cmp.Diff(s.Emails, next.Emails); diff != "" {
		t.Errorf("setLoggedOut mutated emails (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(s.SelectedEmail, next.SelectedEmail); diff != "" {
		t.Errorf("setLoggedOut mutated selection (-want +got):\n%s", diff)
	}
}

func TestTransition_ClearEmails(t *testing.T) {
	s := AppState{Emails: []Email{testEmail("1", "one")}}
	next, err := Transition(s, ClearEmails{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(next.Emails) != 0 {
		t.Errorf("expected empty emails, got %+v", next.Emails)
	}
}

func TestTransition_SetSelectedEmailCopiesValue(t *testing.T) {
	e := testEmail("1", "one")
	next, err := Transition(AppState{}, SetSelectedEmail{Email: &e})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Mutating the caller's email afterwards must not leak into state.
	e.Subject = "mutated"
	if next.SelectedEmail.Subject != "one" {
		t.Errorf("selection aliased caller memory: %q", next.SelectedEmail.Subject)
	}

	cleared, err := Transition(next, SetSelectedEmail{Email: nil})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cleared.SelectedEmail != nil {
		t.Errorf("expected selection cleared, got %+v", cleared.SelectedEmail)
	}
}

// bogusAction is outside the recognized action set.
type bogusAction struct{}

func (bogusAction) Name() string { return "bogus" }
func (bogusAction) isAction()    {}

func TestTransition_UnknownActionFailsWithoutMutation(t *testing.T) {
	s := AppState{Emails: []Email{testEmail("1", "one")}, LoggedIn: true}

	next, err := Transition(s, bogusAction{})
	if !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
	if diff := cmp.Diff(s, next); diff != "" {
		t.Errorf("unknown action mutated state (-want +got):\n%s", diff)
	}
}

func TestTransition_PureWithRespectToInput(t *testing.T) {
	s := AppState{Emails: []Email{testEmail("1", "one"), testEmail("2", "two")}}
	orig := s.clone()

	if _, err := Transition(s, RemoveEmail{ID: "1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := Transition(s, UpdateEmail{ID: "2", Patch: EmailPatch{Subject: strPtr("X")}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff(orig, s); diff != "" {
		t.Errorf("Transition mutated its input (-want +got):\n%s", diff)
	}
}

func TestTransition_LoadScenario(t *testing.T) {
	// setLoadingEmails(true) -> setEmails([{id:1}]) -> setLoadingEmails(false)
	s := AppState{}

	var err error
	if s, err = Transition(s, SetLoadingEmails{Loading: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.LoadingEmails {
		t.Fatal("expected LoadingEmails true mid-fetch")
	}
	if s, err = Transition(s, SetEmails{Emails: []Email{testEmail("1", "one")}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s, err = Transition(s, SetLoadingEmails{Loading: false}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.LoadingEmails {
		t.Error("expected LoadingEmails false after completion")
	}
	if len(s.Emails) != 1 || s.Emails[0].ID != "1" {
		t.Errorf("expected emails [1], got %+v", s.Emails)
	}
}

func TestTransition_SetEmailsPreservesOrderAndUniqueIDs(t *testing.T) {
	in := []Email{testEmail("3", "c"), testEmail("1", "a"), testEmail("2", "b")}
	s, err := Transition(AppState{}, SetEmails{Emails: in})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := make(map[string]bool, len(s.Emails))
	for i, e := range s.Emails {
		if e.ID != in[i].ID {
			t.Errorf("order not preserved at %d: got %s want %s", i, e.ID, in[i].ID)
		}
		if seen[e.ID] {
			t.Errorf("duplicate id %s", e.ID)
		}
		seen[e.ID] = true
	}
}
