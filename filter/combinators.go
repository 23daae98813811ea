package filter

type and struct {
	filters []ComponentFilter
}

func And(filters ...ComponentFilter) ComponentFilter {
	return &and{filters: filters}
}

func (f *and) MatchesComponents(components []string) bool {
	for _, filter := range f.filters {
		if !filter.MatchesComponents(components) {
			return false
		}
	}
	return true
}

type or struct {
	filters []ComponentFilter
}

func Or(filters ...ComponentFilter) ComponentFilter {
	return &or{filters: filters}
}

func (f *or) MatchesComponents(components []string) bool {
	for _, filter := range f.filters {
		if filter.MatchesComponents(components) {
			return true
		}
	}
	return false
}

type not struct {
	filter ComponentFilter
}

func Not(filter ComponentFilter) ComponentFilter {
	return &not{filter: filter}
}

func (f *not) MatchesComponents(components []string) bool {
	return !f.filter.MatchesComponents(components)
}

type all struct{}

// All matches every entity.
func All() ComponentFilter {
	return &all{}
}

func (f *all) MatchesComponents([]string) bool {
	return true
}
