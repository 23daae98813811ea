package filter

type contains struct {
	components []string
}

// Contains matches entities that hold all the named components.
func Contains(components ...string) ComponentFilter {
	return &contains{components: components}
}

func (f *contains) MatchesComponents(components []string) bool {
	for _, name := range f.components {
		if !matchComponent(components, name) {
			return false
		}
	}
	return true
}
