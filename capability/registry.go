package capability

import (
	"reflect"
)

// Registry is the built, immutable set of capabilities. It is shared by all
// guest instances and safe for concurrent use.
type Registry struct {
	handles map[reflect.Type]AnyHandle
	catalog *catalog
}

// NewStore allocates an empty state store with one slot per capability.
func (r *Registry) NewStore() *Store {
	return &Store{
		slots:   make([]any, len(r.catalog.entries)),
		catalog: r.catalog,
	}
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	return len(r.catalog.entries)
}

// Names returns the registered capability types in handle order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.catalog.entries))
	for i, e := range r.catalog.entries {
		names[i] = e.identity().String()
	}
	return names
}

// FindHandle returns the handle of the capability registered with concrete
// type C. A capability that was never registered is not an error; callers
// treat it as an optional feature.
func FindHandle[C Capability[S], S any](r *Registry) (Handle[S], bool) {
	h, ok := r.handles[reflect.TypeFor[C]()]
	if !ok {
		return Handle[S]{}, false
	}
	return Handle[S]{h}, true
}
