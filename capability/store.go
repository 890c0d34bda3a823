package capability

import (
	"fmt"

	"github.com/wippyai/wasm-host/errors"
)

// Store holds the state of every capability for one guest instance. Slots
// are filled lazily from the capability's NewState.
//
// A Store belongs to a single instance and is not safe for concurrent use.
type Store struct {
	slots   []any
	catalog *catalog
}

// Len returns the number of slots.
func (s *Store) Len() int {
	return len(s.slots)
}

// Populated reports whether the slot for h holds a value.
func (s *Store) Populated(h AnyHandle) bool {
	return s.slots[s.index(h)] != nil
}

// GetOrInsertAny returns the slot for h as a pointer to the capability's
// state, building it with NewState if the slot is empty.
func (s *Store) GetOrInsertAny(h AnyHandle) any {
	i := s.index(h)
	if s.slots[i] == nil {
		s.slots[i] = s.catalog.entries[i].newStateAny()
	}
	return s.slots[i]
}

// GetOrInsert returns the instance's state for h, building it on first use.
// Later calls return the same pointer until Set replaces the value.
func GetOrInsert[S any](s *Store, h Handle[S]) *S {
	v := s.GetOrInsertAny(h.AnyHandle)
	st, ok := v.(*S)
	if !ok {
		panic(fmt.Sprintf("capability: slot %d holds %T, want %T", h.index, v, st))
	}
	return st
}

// Set replaces the state for h without calling NewState. It is used to seed
// non-default state before the guest first touches it.
func Set[S any](s *Store, h Handle[S], v S) {
	s.slots[s.index(h.AnyHandle)] = &v
}

// index validates that h belongs to this store's registry.
func (s *Store) index(h AnyHandle) int {
	if h.owner != s.catalog {
		panic(errors.New(errors.PhaseStore, errors.KindInvalidInput).
			Value(h.index).
			Detail("handle was issued by a different capability registry").
			Build())
	}
	if h.index < 0 || h.index >= len(s.slots) {
		panic(errors.OutOfBounds(errors.PhaseStore, nil, h.index, len(s.slots)))
	}
	return h.index
}
