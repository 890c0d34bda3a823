package capability

import (
	"context"
)

type storeKey struct{}

// WithStore attaches an instance's store to ctx. Host functions called by
// the guest receive this context and find their state through it.
func WithStore(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, storeKey{}, s)
}

// StoreFromContext returns the store attached to ctx, if any.
func StoreFromContext(ctx context.Context) (*Store, bool) {
	s, ok := ctx.Value(storeKey{}).(*Store)
	return s, ok && s != nil
}

// MustStoreFromContext is StoreFromContext for host function paths, where a
// missing store means the instance was started without one.
func MustStoreFromContext(ctx context.Context) *Store {
	s, ok := StoreFromContext(ctx)
	if !ok {
		panic("capability: no state store in context")
	}
	return s
}
