package capability

import (
	"context"
	"reflect"

	"github.com/wippyai/wasm-host/linker"
)

// Capability is a host-implemented interface a guest instance may invoke.
// S is the per-instance state the capability keeps in a Store.
type Capability[S any] interface {
	// Bind defines the capability's host functions on the linker. get returns
	// the calling instance's state for the context a host function receives.
	Bind(l *linker.Linker, get Accessor[S]) error

	// NewState builds the initial state for one guest instance.
	NewState() S
}

// Accessor resolves the calling instance's state from a host call context.
type Accessor[S any] func(ctx context.Context) *S

// AnyHandle is the type-erased form of a Handle.
type AnyHandle struct {
	owner *catalog
	index int
}

// Index returns the handle's slot index.
func (h AnyHandle) Index() int {
	return h.index
}

// Valid reports whether the handle was issued by a Builder.
func (h AnyHandle) Valid() bool {
	return h.owner != nil
}

// Handle identifies a registered capability's slot and carries the type of
// its state, so Store lookups through it need no caller-side assertions.
type Handle[S any] struct {
	AnyHandle
}

// Any erases the handle's state type.
func (h Handle[S]) Any() AnyHandle {
	return h.AnyHandle
}

// entry is a registered capability with its state type erased.
type entry interface {
	newStateAny() any
	identity() reflect.Type
}

type boxed[S any] struct {
	c   Capability[S]
	typ reflect.Type
}

// newStateAny stores a pointer so GetOrInsert can hand out a stable *S.
func (b boxed[S]) newStateAny() any {
	s := b.c.NewState()
	return &s
}

func (b boxed[S]) identity() reflect.Type {
	return b.typ
}

// catalog is the ordered capability list shared by a Builder, its Registry
// and every Store derived from it.
type catalog struct {
	entries []entry
}
