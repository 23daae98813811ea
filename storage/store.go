// Package storage implements the columnar entity/component store: one
// sorted column per component, an asset side-store, and the freeze step that
// turns an append-only builder accumulation into an execution-ready form
// whose schema can no longer change.
package storage

import (
	"github.com/rotisserie/eris"

	"github.com/saxena-dev/elodin/component"
	"github.com/saxena-dev/elodin/types"
)

type Store struct {
	registry *component.Manager

	columns map[types.ComponentID]*Column
	// Column creation order, for reproducible iteration.
	order []types.ComponentID

	assets *AssetStore

	nextEntity  uint64
	entityNames map[types.EntityID]string
	namedIDs    map[string]types.EntityID

	frozen bool
}

func NewStore(registry *component.Manager) *Store {
	return &Store{
		registry:    registry,
		columns:     map[types.ComponentID]*Column{},
		assets:      NewAssetStore(),
		entityNames: map[types.EntityID]string{},
		namedIDs:    map[string]types.EntityID{},
	}
}

func (s *Store) Registry() *component.Manager { return s.registry }
func (s *Store) Assets() *AssetStore          { return s.assets }

// AllocEntity issues a fresh entity id, strictly greater than every
// previously issued id.
func (s *Store) AllocEntity() (types.EntityID, error) {
	if s.frozen {
		return 0, eris.Wrap(ErrFrozen, "cannot spawn")
	}
	id := types.EntityID(s.nextEntity)
	s.nextEntity++
	return id, nil
}

// EntityExists reports whether the id was ever issued by this store. IDs are
// monotone and never reused, so existence is a bounds check.
func (s *Store) EntityExists(id types.EntityID) bool {
	return uint64(id) < s.nextEntity
}

// EntityCount returns the number of entities ever spawned.
func (s *Store) EntityCount() int { return int(s.nextEntity) }

// NameEntity attaches a human-readable name to an entity.
func (s *Store) NameEntity(id types.EntityID, name string) error {
	if !s.EntityExists(id) {
		return eris.Wrapf(ErrUnknownEntity, "id %d", id)
	}
	if other, ok := s.namedIDs[name]; ok && other != id {
		return eris.Errorf("entity name %q already taken by entity %d", name, other)
	}
	s.entityNames[id] = name
	s.namedIDs[name] = id
	return nil
}

// EntityByName resolves a name assigned at spawn time.
func (s *Store) EntityByName(name string) (types.EntityID, bool) {
	id, ok := s.namedIDs[name]
	return id, ok
}

// EntityName returns the name of an entity, if it has one.
func (s *Store) EntityName(id types.EntityID) (string, bool) {
	name, ok := s.entityNames[id]
	return name, ok
}

// SetValue attaches a component value to an entity, registering the
// component column on first use. After the store is frozen only existing
// rows may be overwritten.
func (s *Store) SetValue(id types.EntityID, meta types.ComponentMetadata, v Value) error {
	if !s.EntityExists(id) {
		return eris.Wrapf(ErrUnknownEntity, "id %d", id)
	}
	col, ok := s.columns[meta.ID]
	if !ok {
		if s.frozen {
			return eris.Wrapf(ErrFrozen, "cannot add component %q", meta.Name)
		}
		col = NewColumn(meta)
		s.columns[meta.ID] = col
		s.order = append(s.order, meta.ID)
	}
	if s.frozen {
		if _, held := col.Index(id); !held {
			return eris.Wrapf(ErrFrozen, "entity %d does not hold component %q", id, meta.Name)
		}
	}
	return col.Upsert(id, v)
}

// EnsureColumn creates an empty column for a registered component if one
// does not exist yet. Derived components declared by pipeline systems use
// this before the schema freezes.
func (s *Store) EnsureColumn(meta types.ComponentMetadata) (*Column, error) {
	if col, ok := s.columns[meta.ID]; ok {
		if !col.meta.Type.Equal(meta.Type) {
			return nil, eris.Wrapf(component.ErrTypeConflict, "component %q", meta.Name)
		}
		return col, nil
	}
	if s.frozen {
		return nil, eris.Wrapf(ErrFrozen, "cannot add component %q", meta.Name)
	}
	col := NewColumn(meta)
	s.columns[meta.ID] = col
	s.order = append(s.order, meta.ID)
	return col, nil
}

// Column returns the column storing a component name.
func (s *Store) Column(name string) (*Column, error) {
	meta, err := s.registry.ByName(name)
	if err != nil {
		return nil, err
	}
	col, ok := s.columns[meta.ID]
	if !ok {
		return nil, eris.Wrap(ErrComponentNotFound, name)
	}
	return col, nil
}

// HasColumn reports whether any entity holds the component name.
func (s *Store) HasColumn(name string) bool {
	meta, err := s.registry.ByName(name)
	if err != nil {
		return false
	}
	_, ok := s.columns[meta.ID]
	return ok
}

// Columns returns every column in creation order.
func (s *Store) Columns() []*Column {
	out := make([]*Column, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.columns[id])
	}
	return out
}

// ComponentsOf returns the names of the components an entity holds, in
// column creation order.
func (s *Store) ComponentsOf(id types.EntityID) []string {
	var names []string
	for _, cid := range s.order {
		if _, ok := s.columns[cid].Index(id); ok {
			names = append(names, s.columns[cid].meta.Name)
		}
	}
	return names
}

// Freeze locks the schema: no new entities, no new component columns. Value
// storage stays mutable per tick.
func (s *Store) Freeze() { s.frozen = true }

func (s *Store) Frozen() bool { return s.frozen }

// SnapshotBuffers deep-copies every column. The executable commits a tick
// by letting systems mutate columns in place; on a failed tick the snapshot
// is restored so a runtime error never corrupts previously committed state.
func (s *Store) SnapshotBuffers() map[types.ComponentID]*Column {
	snap := make(map[types.ComponentID]*Column, len(s.columns))
	for id, col := range s.columns {
		snap[id] = col.Clone()
	}
	return snap
}

// RestoreBuffers rolls every column back to a snapshot.
func (s *Store) RestoreBuffers(snap map[types.ComponentID]*Column) {
	for id, col := range s.columns {
		if saved, ok := snap[id]; ok {
			col.RestoreFrom(saved)
		}
	}
}
