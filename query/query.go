// Package query implements typed projections and joins over the columnar
// store, plus graph queries over inter-entity edges. Every result is ordered
// by ascending entity id; given identical world content the same query
// always produces the same rows, which is what makes recorded history
// deterministic.
package query

import (
	"github.com/rotisserie/eris"

	"github.com/saxena-dev/elodin/system"
	"github.com/saxena-dev/elodin/types"
)

// Query is a typed projection: evaluating it yields one aligned column per
// requested component name, covering exactly the entities that hold all
// requested names.
type Query struct {
	ctx   *system.Context
	names []string
}

// New builds a query over the given component names. During the compile-time
// declare phase, unknown names are recorded on the context so validation can
// report every unresolved reference at once.
func New(ctx *system.Context, names ...string) *Query {
	q := &Query{ctx: ctx, names: dedupe(names)}
	if ctx.Declaring() {
		for _, name := range q.names {
			ctx.Resolve(name)
		}
	}
	return q
}

func (q *Query) Names() []string { return q.names }

// Join combines two queries: the entity set is the ordered intersection of
// both underlying sets, and the columns are the left query's followed by the
// right's.
func (q *Query) Join(other *Query) *Query {
	return &Query{ctx: q.ctx, names: dedupe(append(append([]string{}, q.names...), other.names...))}
}

// Entities returns the ascending entity ids that hold every requested
// component. An empty result is valid, not an error.
func (q *Query) Entities() ([]types.EntityID, error) {
	res, err := q.Result()
	if err != nil {
		return nil, err
	}
	return res.Entities, nil
}

// Result evaluates the query against the store's current values.
func (q *Query) Result() (*Result, error) {
	store := q.ctx.Store()
	ids := []types.EntityID(nil)
	first := true
	for _, name := range q.names {
		if _, ok := q.ctx.Resolve(name); !ok {
			return nil, eris.Errorf("query references unregistered component %q", name)
		}
		if !store.HasColumn(name) {
			// Registered but held by no entity: valid empty result.
			return newResult(q.names, nil), nil
		}
		col, err := store.Column(name)
		if err != nil {
			return nil, err
		}
		if first {
			ids = append(ids, col.EntityIDs()...)
			first = false
		} else {
			ids = intersect(ids, col.EntityIDs())
		}
		if len(ids) == 0 {
			return newResult(q.names, nil), nil
		}
	}
	res := newResult(q.names, ids)
	for _, name := range q.names {
		col, err := store.Column(name)
		if err != nil {
			return nil, err
		}
		rows := make([][]float64, len(ids))
		for i, id := range ids {
			rowIdx, ok := col.Index(id)
			if !ok {
				return nil, eris.Errorf("entity %d vanished from column %q mid-query", id, name)
			}
			rows[i] = col.Row(rowIdx)
		}
		res.rows[name] = rows
	}
	return res, nil
}

// Result is an evaluated query: aligned per-name columns over a shared
// ascending entity-id order.
type Result struct {
	Entities []types.EntityID
	Names    []string

	rows  map[string][][]float64
	index map[types.EntityID]int
}

func newResult(names []string, ids []types.EntityID) *Result {
	index := make(map[types.EntityID]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}
	return &Result{
		Entities: ids,
		Names:    names,
		rows:     make(map[string][][]float64, len(names)),
		index:    index,
	}
}

func (r *Result) Len() int { return len(r.Entities) }

// Rows returns one component's values, aligned with Entities. The caller
// must not mutate the returned slices.
func (r *Result) Rows(name string) [][]float64 { return r.rows[name] }

// Row returns the i-th row of one component.
func (r *Result) Row(name string, i int) []float64 { return r.rows[name][i] }

// Index returns the row position of an entity within the result.
func (r *Result) Index(id types.EntityID) (int, bool) {
	i, ok := r.index[id]
	return i, ok
}

// Arrays returns every requested column keyed by name, aligned with
// Entities.
func (r *Result) Arrays() map[string][][]float64 { return r.rows }

// RowInputs gathers the i-th row of every requested name, in name order.
// This is the argument layout map functions receive.
func (r *Result) RowInputs(i int) [][]float64 {
	in := make([][]float64, len(r.Names))
	for j, name := range r.Names {
		in[j] = r.rows[name][i]
	}
	return in
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func intersect(a, b []types.EntityID) []types.EntityID {
	out := a[:0]
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}
