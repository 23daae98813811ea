// Package filter implements boolean filters over the set of component
// names an entity holds. Filters compose into match expressions used by
// entity search and by the component query language.
package filter

// ComponentFilter matches against the full list of component names an
// entity holds.
type ComponentFilter interface {
	MatchesComponents(components []string) bool
}

func matchComponent(components []string, name string) bool {
	for _, c := range components {
		if c == name {
			return true
		}
	}
	return false
}
