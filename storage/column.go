package storage

import (
	"sort"

	"github.com/saxena-dev/elodin/codec"
	"github.com/saxena-dev/elodin/types"
)

// Column is the columnar storage of one component: a sorted list of entity
// ids and a contiguous buffer holding one packed value per id. Row order is
// ascending entity id, always; that ordering is what makes every query and
// every recorded history reproducible.
type Column struct {
	meta types.ComponentMetadata
	ids  []types.EntityID
	buf  []byte
}

func NewColumn(meta types.ComponentMetadata) *Column {
	return &Column{meta: meta}
}

func (c *Column) Metadata() types.ComponentMetadata { return c.meta }
func (c *Column) Len() int                          { return len(c.ids) }

// EntityIDs returns the column's entity ids in ascending order. The caller
// must not mutate the returned slice.
func (c *Column) EntityIDs() []types.EntityID { return c.ids }

// Bytes returns the packed column buffer. The caller must not mutate it.
func (c *Column) Bytes() []byte { return c.buf }

// Index returns the row index of an entity, or false if the entity does not
// hold this component.
func (c *Column) Index(id types.EntityID) (int, bool) {
	i := sort.Search(len(c.ids), func(i int) bool { return c.ids[i] >= id })
	if i < len(c.ids) && c.ids[i] == id {
		return i, true
	}
	return 0, false
}

// Upsert sets the entity's value, inserting a new row in id order if the
// entity does not hold this component yet. Last write wins.
func (c *Column) Upsert(id types.EntityID, v Value) error {
	if err := v.Validate(c.meta.Type); err != nil {
		return err
	}
	size := c.meta.Type.Size()
	i := sort.Search(len(c.ids), func(i int) bool { return c.ids[i] >= id })
	if i < len(c.ids) && c.ids[i] == id {
		copy(c.buf[i*size:(i+1)*size], v.Bytes())
		return nil
	}
	c.ids = append(c.ids, 0)
	copy(c.ids[i+1:], c.ids[i:])
	c.ids[i] = id
	c.buf = append(c.buf, make([]byte, size)...)
	copy(c.buf[(i+1)*size:], c.buf[i*size:len(c.buf)-size])
	copy(c.buf[i*size:(i+1)*size], v.Bytes())
	return nil
}

// Row decodes row i into a fresh leaf slice.
func (c *Column) Row(i int) []float64 {
	return codec.ReadLeaves(c.buf, c.meta.Type, i)
}

// SetRow overwrites row i in place.
func (c *Column) SetRow(i int, leaves []float64) error {
	return codec.WriteLeaves(c.buf, c.meta.Type, i, leaves)
}

// RowU64 reads element j of row i of a U64 column exactly.
func (c *Column) RowU64(i, j int) uint64 {
	return codec.ReadU64(c.buf, c.meta.Type, i, j)
}

// Value returns the entity's value, if the entity holds this component.
func (c *Column) Value(id types.EntityID) (Value, bool) {
	i, ok := c.Index(id)
	if !ok {
		return Value{}, false
	}
	size := c.meta.Type.Size()
	buf := make([]byte, size)
	copy(buf, c.buf[i*size:(i+1)*size])
	return Value{typ: c.meta.Type, buf: buf}, true
}

// Rows decodes the whole column into leaf slices, row order ascending by
// entity id.
func (c *Column) Rows() [][]float64 {
	out := make([][]float64, len(c.ids))
	for i := range c.ids {
		out[i] = c.Row(i)
	}
	return out
}

// Clone deep-copies the column. Used for per-tick commit snapshots and for
// history recording.
func (c *Column) Clone() *Column {
	ids := make([]types.EntityID, len(c.ids))
	copy(ids, c.ids)
	buf := make([]byte, len(c.buf))
	copy(buf, c.buf)
	return &Column{meta: c.meta, ids: ids, buf: buf}
}

// RestoreFrom copies another column's rows into this one. Both columns must
// share a component type.
func (c *Column) RestoreFrom(other *Column) {
	c.ids = c.ids[:0]
	c.ids = append(c.ids, other.ids...)
	c.buf = c.buf[:0]
	c.buf = append(c.buf, other.buf...)
}
