// Package component implements the registry of named, typed components. A
// component name is bound to exactly one ComponentType for the lifetime of a
// world; re-registering a name with a different type is a conflict.
package component

import (
	"errors"

	"github.com/rotisserie/eris"

	"github.com/saxena-dev/elodin/types"
)

var (
	ErrTypeConflict      = errors.New("component name already registered with a different type")
	ErrComponentNotFound = errors.New("component not found")
)

type Manager struct {
	byID   map[types.ComponentID]types.ComponentMetadata
	byName map[string]types.ComponentID
	// Registration order. Maps in Go are unordered and every iteration over
	// the registry must be reproducible across runs.
	order []types.ComponentID
}

func NewManager() *Manager {
	return &Manager{
		byID:   map[types.ComponentID]types.ComponentMetadata{},
		byName: map[string]types.ComponentID{},
	}
}

// Register binds name to the given component type. Registering the same name
// again with an identical type and asset flag is idempotent and returns the
// existing entry; any mismatch fails with ErrTypeConflict.
func (m *Manager) Register(
	name string, typ types.ComponentType, asset bool, metadata types.Metadata,
) (types.ComponentMetadata, error) {
	if name == "" {
		return types.ComponentMetadata{}, eris.New("component name must not be empty")
	}
	if err := typ.Validate(); err != nil {
		return types.ComponentMetadata{}, err
	}
	if id, ok := m.byName[name]; ok {
		existing := m.byID[id]
		if !existing.Type.Equal(typ) || existing.Asset != asset {
			return types.ComponentMetadata{}, eris.Wrapf(
				ErrTypeConflict, "component %q: registered as %s, re-registered as %s",
				name, existing.Type, typ,
			)
		}
		return existing, nil
	}
	meta := types.ComponentMetadata{
		ID:       types.NewComponentID(name),
		Name:     name,
		Type:     typ,
		Asset:    asset,
		Metadata: metadata,
	}
	m.byID[meta.ID] = meta
	m.byName[name] = meta.ID
	m.order = append(m.order, meta.ID)
	return meta, nil
}

// AttachSchema stores a JSON-schema fingerprint on an already registered
// component. The fingerprint travels with persisted runs and is compared on
// read-back.
func (m *Manager) AttachSchema(name string, schema []byte) error {
	id, ok := m.byName[name]
	if !ok {
		return eris.Wrap(ErrComponentNotFound, name)
	}
	meta := m.byID[id]
	meta.Schema = schema
	m.byID[id] = meta
	return nil
}

// ByName looks up the registry entry for a component name.
func (m *Manager) ByName(name string) (types.ComponentMetadata, error) {
	id, ok := m.byName[name]
	if !ok {
		return types.ComponentMetadata{}, eris.Wrap(ErrComponentNotFound, name)
	}
	return m.byID[id], nil
}

func (m *Manager) ByID(id types.ComponentID) (types.ComponentMetadata, error) {
	meta, ok := m.byID[id]
	if !ok {
		return types.ComponentMetadata{}, eris.Wrapf(ErrComponentNotFound, "id %d", id)
	}
	return meta, nil
}

func (m *Manager) Has(name string) bool {
	_, ok := m.byName[name]
	return ok
}

// Components returns all registered components in registration order.
func (m *Manager) Components() []types.ComponentMetadata {
	out := make([]types.ComponentMetadata, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out
}
