package elodin

import (
	"github.com/rotisserie/eris"

	"github.com/saxena-dev/elodin/storage"
	"github.com/saxena-dev/elodin/types"
)

// ComponentValue is one named, typed component value ready to attach to an
// entity. Schema, when set, is a JSON-schema fingerprint of the composite
// Go type the value decomposed from; it travels with persisted runs.
type ComponentValue struct {
	Name     string
	Asset    bool
	Metadata types.Metadata
	Schema   []byte
	Value    storage.Value
}

// Bundle is anything that decomposes into component values: a single typed
// value, a named composite (an archetype such as a rigid body), or a list of
// such. The closed set of implementations replaces duck typing: values are
// validated against the registry at insertion.
type Bundle interface {
	Components() ([]ComponentValue, error)
}

func (c ComponentValue) Components() ([]ComponentValue, error) {
	if c.Name == "" {
		return nil, eris.New("component value must have a name")
	}
	return []ComponentValue{c}, nil
}

// C builds a component value from a name and a packed value.
func C(name string, v storage.Value) ComponentValue {
	return ComponentValue{Name: name, Value: v}
}

type bundleList []Bundle

// Bundles combines several bundles into one.
func Bundles(bundles ...Bundle) Bundle {
	return bundleList(bundles)
}

func (l bundleList) Components() ([]ComponentValue, error) {
	var out []ComponentValue
	for _, b := range l {
		comps, err := b.Components()
		if err != nil {
			return nil, err
		}
		out = append(out, comps...)
	}
	return out, nil
}

// EdgeComponent builds a directed edge value between two entities, stored
// under the given edge component name as a u64 pair. Graph queries read any
// such component as an edge set.
func EdgeComponent(name string, left, right types.EntityID) ComponentValue {
	return C(name, storage.U64Pair(uint64(left), uint64(right)))
}
