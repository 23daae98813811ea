package filter

type exact struct {
	components []string
}

// Exact matches entities that hold exactly the named components, no more
// and no fewer.
func Exact(components ...string) ComponentFilter {
	return &exact{components: components}
}

func (f *exact) MatchesComponents(components []string) bool {
	if len(components) != len(f.components) {
		return false
	}
	for _, name := range f.components {
		if !matchComponent(components, name) {
			return false
		}
	}
	return true
}
