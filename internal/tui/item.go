package tui

// itemState holds the per-row presentation flags for one email in the
// list. Rows not present in the map are implicitly in the zero state.
type itemState struct {
	hovered      bool // cursor is on this row
	bodyExpanded bool // body preview shown under the row
	busy         bool // delete in flight, row is locked
}

// itemStates tracks presentation state per email ID. Flags are independent
// of the email data itself: a refresh replaces the list but states for
// surviving IDs are kept.
type itemStates map[string]itemState

func newItemStates() itemStates {
	return make(itemStates)
}

// get returns the state for an ID, zero-valued if never touched.
func (s itemStates) get(id string) itemState {
	return s[id]
}

// enter marks the row hovered. Mirrors the pointer entering a row; cursor
// movement calls leave on the old row and enter on the new one.
func (s itemStates) enter(id string) {
	st := s[id]
	st.hovered = true
	s[id] = st
}

// leave clears the hovered flag.
func (s itemStates) leave(id string) {
	st := s[id]
	st.hovered = false
	s[id] = st
}

// toggleExpanded flips the body preview. A busy row cannot be toggled.
func (s itemStates) toggleExpanded(id string) {
	st := s[id]
	if st.busy {
		return
	}
	st.bodyExpanded = !st.bodyExpanded
	s[id] = st
}

// beginDelete marks the row busy and reports whether the delete may
// proceed. A second delete on an already-busy row is refused. Hover state
// is irrelevant here: a delete triggered without hover still locks the row.
func (s itemStates) beginDelete(id string) bool {
	st := s[id]
	if st.busy {
		return false
	}
	st.busy = true
	s[id] = st
	return true
}

// endDelete clears the busy flag after a failed delete. A successful
// delete removes the entry instead.
func (s itemStates) endDelete(id string) {
	st := s[id]
	st.busy = false
	s[id] = st
}

// remove drops all state for an ID.
func (s itemStates) remove(id string) {
	delete(s, id)
}

// anyBusy reports whether any row has a delete in flight.
func (s itemStates) anyBusy() bool {
	for _, st := range s {
		if st.busy {
			return true
		}
	}
	return false
}

// prune drops state for IDs no longer in the list, keeping the map from
// growing across refreshes.
func (s itemStates) prune(ids map[string]bool) {
	for id := range s {
		if !ids[id] {
			delete(s, id)
		}
	}
}
