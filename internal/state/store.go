package state

import "sync"

// Store owns one AppState for the lifetime of a session. Dispatches are
// applied in arrival order under a single lock, so each transition is
// atomic with respect to observers and no two transitions ever interleave.
// The store performs no I/O; completed network operations dispatch their
// results into it from the outside.
//
// A Store is constructed once at the composition root and passed to
// consumers explicitly. Consumers read via Snapshot and write via Dispatch.
type Store struct {
	mu    sync.Mutex
	state AppState
}

// NewStore creates a store with the given initial state, typically a zero
// AppState or one with a pre-seeded Emails list.
func NewStore(initial AppState) *Store {
	return &Store{state: initial.clone()}
}

// Dispatch applies one action. On ErrUnknownAction the state is left
// exactly as it was.
func (s *Store) Dispatch(a Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := Transition(s.state, a)
	if err != nil {
		return err
	}
	s.state = next
	return nil
}

// Snapshot returns a value copy of the current state. The copy shares no
// mutable memory with the store, so callers can hold it across renders.
func (s *Store) Snapshot() AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}
