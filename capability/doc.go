// Package capability keeps an open set of host capabilities and their
// per-instance state.
//
// A Capability is a unit of host functionality a guest may call into. At host
// configuration time each capability is added to a Builder, which assigns it a
// dense Handle and lets it bind its host functions into a linker.Linker. Build
// freezes the set into an immutable Registry shared by every guest instance.
//
// Each guest instance gets its own Store from Registry.NewStore. Slots start
// empty and are filled with the capability's NewState on first access, so a
// capability the guest never calls costs nothing.
//
//	b := capability.NewBuilder()
//	h, err := capability.Add[logging.State](b, l, logging.New(logger))
//	reg := b.Build()
//
//	store := reg.NewStore()
//	st := capability.GetOrInsert(store, h) // *logging.State
//
// Handles are only meaningful for the Registry (and its Stores) that issued
// them. Using a handle against another Registry is a programmer error and
// panics.
package capability
