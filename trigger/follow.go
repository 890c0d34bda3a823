package trigger

import (
	"sort"
	"strings"
)

type followMode uint8

const (
	followNone followMode = iota
	followNamed
	followAll
)

// FollowComponents selects which components have their output mirrored live
// to the host's stderr. The zero value follows nothing.
type FollowComponents struct {
	ids  map[string]struct{}
	mode followMode
}

// FollowNone follows no component.
func FollowNone() FollowComponents {
	return FollowComponents{mode: followNone}
}

// FollowAll follows every component.
func FollowAll() FollowComponents {
	return FollowComponents{mode: followAll}
}

// FollowNamed follows only the given component ids.
func FollowNamed(ids ...string) FollowComponents {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return FollowComponents{mode: followNamed, ids: set}
}

// ShouldFollow reports whether componentID's output should be mirrored.
func (f FollowComponents) ShouldFollow(componentID string) bool {
	switch f.mode {
	case followAll:
		return true
	case followNamed:
		_, ok := f.ids[componentID]
		return ok
	default:
		return false
	}
}

// Named returns the explicitly selected ids, sorted. It is empty unless the
// selection was made with FollowNamed.
func (f FollowComponents) Named() []string {
	ids := make([]string, 0, len(f.ids))
	for id := range f.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (f FollowComponents) String() string {
	switch f.mode {
	case followAll:
		return "all"
	case followNamed:
		return strings.Join(f.Named(), ",")
	default:
		return "none"
	}
}

// unknown returns the named ids missing from valid, sorted.
func (f FollowComponents) unknown(valid []string) []string {
	if f.mode != followNamed {
		return nil
	}
	known := make(map[string]struct{}, len(valid))
	for _, id := range valid {
		known[id] = struct{}{}
	}
	var missing []string
	for _, id := range f.Named() {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
