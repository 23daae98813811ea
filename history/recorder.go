// Package history records the full state of every tracked component at
// every committed tick, and can persist one run's schema plus history to a
// directory and read it back exactly.
package history

import (
	"github.com/rotisserie/eris"

	"github.com/saxena-dev/elodin/storage"
	"github.com/saxena-dev/elodin/types"
)

// ColumnSnapshot is one component's full column at one tick: entity ids in
// ascending order and one decoded row per id.
type ColumnSnapshot struct {
	Name     string              `json:"name"`
	Type     types.ComponentType `json:"type"`
	Entities []types.EntityID    `json:"entities"`
	Rows     [][]float64         `json:"rows"`
}

// Value returns one entity's row within the snapshot.
func (c *ColumnSnapshot) Value(id types.EntityID) ([]float64, bool) {
	for i, e := range c.Entities {
		if e == id {
			return c.Rows[i], true
		}
		if e > id {
			break
		}
	}
	return nil, false
}

// TickSnapshot is the committed state of every tracked component after one
// tick. Tick 0 is the pre-run state.
type TickSnapshot struct {
	Tick    uint64           `json:"tick"`
	Columns []ColumnSnapshot `json:"columns"`
}

func (t *TickSnapshot) Column(name string) (*ColumnSnapshot, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Recorder accumulates tick snapshots. The execution engine records each
// tick after its writes commit; a failed tick is never recorded.
type Recorder struct {
	ticks []TickSnapshot
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record snapshots the given columns as the committed state of a tick.
func (r *Recorder) Record(tick uint64, columns []*storage.Column) {
	snap := TickSnapshot{Tick: tick, Columns: make([]ColumnSnapshot, 0, len(columns))}
	for _, col := range columns {
		ids := make([]types.EntityID, col.Len())
		copy(ids, col.EntityIDs())
		snap.Columns = append(snap.Columns, ColumnSnapshot{
			Name:     col.Metadata().Name,
			Type:     col.Metadata().Type,
			Entities: ids,
			Rows:     col.Rows(),
		})
	}
	r.ticks = append(r.ticks, snap)
}

// Len returns the number of recorded ticks, including the tick-0 pre-run
// state.
func (r *Recorder) Len() int { return len(r.ticks) }

// Ticks returns every recorded snapshot in tick order.
func (r *Recorder) Ticks() []TickSnapshot { return r.ticks }

// At returns the snapshot of one tick.
func (r *Recorder) At(tick uint64) (TickSnapshot, bool) {
	for _, t := range r.ticks {
		if t.Tick == tick {
			return t, true
		}
	}
	return TickSnapshot{}, false
}

// ColumnHistory returns one component's full series, one snapshot per
// recorded tick.
func (r *Recorder) ColumnHistory(name string) ([]ColumnSnapshot, error) {
	out := make([]ColumnSnapshot, 0, len(r.ticks))
	for i := range r.ticks {
		col, ok := r.ticks[i].Column(name)
		if !ok {
			return nil, eris.Errorf("component %q is not tracked in history", name)
		}
		out = append(out, *col)
	}
	return out, nil
}

// Value returns one component value keyed by (tick, entity).
func (r *Recorder) Value(tick uint64, id types.EntityID, name string) ([]float64, bool) {
	snap, ok := r.At(tick)
	if !ok {
		return nil, false
	}
	col, ok := snap.Column(name)
	if !ok {
		return nil, false
	}
	return col.Value(id)
}
