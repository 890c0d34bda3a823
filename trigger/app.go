package trigger

import (
	"sort"
)

// Component is one guest module of an application.
type Component struct {
	Env    map[string]string
	ID     string
	Source string
	Args   []string
}

// App is a loaded application: a name and its declared components.
type App struct {
	Name       string
	Components []Component
}

// Component returns the component with the given id.
func (a *App) Component(id string) (*Component, bool) {
	for i := range a.Components {
		if a.Components[i].ID == id {
			return &a.Components[i], true
		}
	}
	return nil, false
}

// ComponentIDs returns the declared component ids, sorted.
func (a *App) ComponentIDs() []string {
	ids := make([]string, len(a.Components))
	for i, c := range a.Components {
		ids[i] = c.ID
	}
	sort.Strings(ids)
	return ids
}
