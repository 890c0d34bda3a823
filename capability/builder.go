package capability

import (
	"context"
	"reflect"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-host/errors"
	"github.com/wippyai/wasm-host/linker"
)

// Builder accumulates capabilities at host configuration time.
// It is not safe for concurrent use.
type Builder struct {
	handles map[reflect.Type]AnyHandle
	catalog *catalog
	built   bool
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		handles: make(map[reflect.Type]AnyHandle),
		catalog: &catalog{},
	}
}

// Add registers c, binds it into l and returns its handle. Only one
// capability per concrete Go type may be added; a second one fails with
// KindDuplicate. If Bind fails the capability is not registered and any
// host functions it defined are removed from l.
func Add[S any](b *Builder, l *linker.Linker, c Capability[S]) (Handle[S], error) {
	if b.built {
		return Handle[S]{}, errors.Consumed(errors.PhaseRegister, "capability builder")
	}
	if c == nil {
		return Handle[S]{}, errors.InvalidInput(errors.PhaseRegister, "capability cannot be nil")
	}

	typ := reflect.TypeOf(c)
	if _, exists := b.handles[typ]; exists {
		return Handle[S]{}, errors.Duplicate(errors.PhaseRegister, typ.String())
	}

	h := Handle[S]{AnyHandle{owner: b.catalog, index: len(b.catalog.entries)}}
	get := func(ctx context.Context) *S {
		return GetOrInsert(MustStoreFromContext(ctx), h)
	}
	mark := l.Mark()
	if err := c.Bind(l, get); err != nil {
		// Functions defined before the failure would reach a slot the next
		// capability is given.
		err = multierr.Append(err, l.Rollback(mark))
		return Handle[S]{}, errors.New(errors.PhaseRegister, errors.KindRegistration).
			GoType(typ.String()).
			Detail("bind capability").
			Cause(err).
			Build()
	}

	b.catalog.entries = append(b.catalog.entries, boxed[S]{c: c, typ: typ})
	b.handles[typ] = h.AnyHandle

	Logger().Debug("capability registered",
		zap.Stringer("type", typ),
		zap.Int("handle", h.index))
	return h, nil
}

// Build consumes the builder and returns the immutable Registry. Calling it
// twice panics.
func (b *Builder) Build() *Registry {
	if b.built {
		panic(errors.Consumed(errors.PhaseRegister, "capability builder"))
	}
	b.built = true

	handles := b.handles
	b.handles = nil
	return &Registry{
		handles: handles,
		catalog: b.catalog,
	}
}
