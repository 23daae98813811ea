package query

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/saxena-dev/elodin/system"
	"github.com/saxena-dev/elodin/types"
)

// GraphSpec selects the edge set of a graph query: either an explicit edge
// component (a u64[2] of (left, right) entity ids, optionally reversed), or
// the implicit complete graph connecting every entity to every other entity.
type GraphSpec struct {
	Edge    string
	Reverse bool
	total   bool
}

// Edges selects an explicit edge component.
func Edges(component string) GraphSpec { return GraphSpec{Edge: component} }

// EdgesReversed selects an explicit edge component with the left/right
// roles swapped.
func EdgesReversed(component string) GraphSpec { return GraphSpec{Edge: component, Reverse: true} }

// TotalGraph selects the complete graph over every spawned entity,
// excluding self-pairs. Used for all-pairs interactions.
func TotalGraph() GraphSpec { return GraphSpec{total: true} }

// Edge is one directed pair in a graph query. ID is the entity holding the
// edge component value; for the complete graph it is zero.
type Edge struct {
	ID   types.EntityID
	From types.EntityID
	To   types.EntityID
}

// GraphQuery evaluates pairwise projections over an edge set.
type GraphQuery struct {
	ctx  *system.Context
	spec GraphSpec
}

// NewGraph builds a graph query. During the declare phase an explicit edge
// component that is not registered is recorded as unresolved.
func NewGraph(ctx *system.Context, spec GraphSpec) *GraphQuery {
	g := &GraphQuery{ctx: ctx, spec: spec}
	if !spec.total && ctx.Declaring() {
		ctx.Resolve(spec.Edge)
	}
	return g
}

// Edges returns the ordered edge set. Explicit edges come out in ascending
// order of the entity holding the edge value; complete-graph pairs come out
// in ascending (from, to) order. An edge whose endpoint was never spawned is
// silently excluded.
func (g *GraphQuery) Edges() ([]Edge, error) {
	store := g.ctx.Store()
	if g.spec.total {
		n := store.EntityCount()
		edges := make([]Edge, 0, n*(n-1))
		for from := 0; from < n; from++ {
			for to := 0; to < n; to++ {
				if from == to {
					continue
				}
				edges = append(edges, Edge{
					From: types.EntityID(from),
					To:   types.EntityID(to),
				})
			}
		}
		return edges, nil
	}
	if _, ok := g.ctx.Resolve(g.spec.Edge); !ok {
		return nil, eris.Errorf("graph query references unregistered edge component %q", g.spec.Edge)
	}
	if !store.HasColumn(g.spec.Edge) {
		return nil, nil
	}
	col, err := store.Column(g.spec.Edge)
	if err != nil {
		return nil, err
	}
	if col.Metadata().Type.Prim != types.PrimU64 || col.Metadata().Type.Len() != 2 {
		return nil, eris.Errorf(
			"edge component %q must be u64[2], got %s", g.spec.Edge, col.Metadata().Type)
	}
	owners := col.EntityIDs()
	edges := make([]Edge, 0, col.Len())
	for i := 0; i < col.Len(); i++ {
		left := types.EntityID(col.RowU64(i, 0))
		right := types.EntityID(col.RowU64(i, 1))
		if !store.EntityExists(left) || !store.EntityExists(right) {
			continue
		}
		if g.spec.Reverse {
			left, right = right, left
		}
		edges = append(edges, Edge{ID: owners[i], From: left, To: right})
	}
	return edges, nil
}

// EdgeRows is one edge's gathered data: the from-query columns for the
// edge's source entity and the to-query columns for its target.
type EdgeRows struct {
	Edge Edge
	From [][]float64
	To   [][]float64
}

// Arrays gathers, for every edge, the from-query columns of the source
// entity and the to-query columns of the target entity. Edges whose
// endpoints do not satisfy the respective query are excluded.
func (g *GraphQuery) Arrays(from, to *Query) ([]EdgeRows, error) {
	edges, err := g.Edges()
	if err != nil {
		return nil, err
	}
	fromRes, err := from.Result()
	if err != nil {
		return nil, err
	}
	toRes, err := to.Result()
	if err != nil {
		return nil, err
	}
	out := make([]EdgeRows, 0, len(edges))
	for _, e := range edges {
		i, ok := fromRes.Index(e.From)
		if !ok {
			continue
		}
		j, ok := toRes.Index(e.To)
		if !ok {
			continue
		}
		out = append(out, EdgeRows{Edge: e, From: fromRes.RowInputs(i), To: toRes.RowInputs(j)})
	}
	return out, nil
}

// GraphMapFn receives one edge's (from, to) row pair: one element slice per
// from-query component, then per to-query component. Like MapFn it must be
// pure.
type GraphMapFn func(from, to [][]float64) []float64

// GraphMap builds a system that applies fn to every edge's (from, to) row
// pair and sums the per-edge results into one value per source entity,
// written to a derived component. This is the mechanism for pairwise
// interactions: summing pairwise forces into one net force per entity.
// Entities matched by the from components but touched by no edge get a zero
// value.
func GraphMap(
	spec GraphSpec, from, to []string, result string, typ types.ComponentType, fn GraphMapFn,
) system.System {
	return newGraphMapSystem(spec, from, to, result, typ, fn, false)
}

// GraphMapAdd is GraphMap with accumulate semantics: per-entity sums are
// added into the result component instead of replacing it.
func GraphMapAdd(
	spec GraphSpec, from, to []string, result string, typ types.ComponentType, fn GraphMapFn,
) system.System {
	return newGraphMapSystem(spec, from, to, result, typ, fn, true)
}

type graphMapSystem struct {
	name   string
	spec   GraphSpec
	from   []string
	to     []string
	result string
	typ    types.ComponentType
	fn     GraphMapFn
	add    bool
}

func newGraphMapSystem(
	spec GraphSpec, from, to []string, result string, typ types.ComponentType,
	fn GraphMapFn, add bool,
) system.System {
	return &graphMapSystem{
		name:   fmt.Sprintf("graph_map(%s)", result),
		spec:   spec,
		from:   from,
		to:     to,
		result: result,
		typ:    typ,
		fn:     fn,
		add:    add,
	}
}

func (m *graphMapSystem) Name() string { return m.name }

func (m *graphMapSystem) Init(ctx *system.Context) error {
	fromQ := New(ctx, m.from...)
	NewGraph(ctx, m.spec)
	New(ctx, m.to...)
	if _, err := ctx.DeclareComponent(m.result, m.typ); err != nil {
		return err
	}
	if len(ctx.Unresolved()) > 0 {
		return nil
	}
	return seedResultRows(ctx, fromQ, m.result, m.typ)
}

func (m *graphMapSystem) Step(ctx *system.Context) error {
	g := NewGraph(ctx, m.spec)
	fromQ := New(ctx, m.from...)
	toQ := New(ctx, m.to...)
	rows, err := g.Arrays(fromQ, toQ)
	if err != nil {
		return err
	}
	fromRes, err := fromQ.Result()
	if err != nil {
		return err
	}
	// One accumulator per source entity, zero-filled; edge contributions can
	// be evaluated in any order because summation targets are per entity.
	acc := make(map[types.EntityID][]float64, fromRes.Len())
	for _, id := range fromRes.Entities {
		acc[id] = make([]float64, m.typ.Len())
	}
	contributions := make([][]float64, len(rows))
	ctx.Runner().Run(len(rows), func(i int) {
		contributions[i] = m.fn(rows[i].From, rows[i].To)
	})
	for i, er := range rows {
		c := contributions[i]
		if len(c) != m.typ.Len() {
			return eris.Errorf(
				"graph map %q returned %d elements for edge (%d->%d), component type %s requires %d",
				m.result, len(c), er.Edge.From, er.Edge.To, m.typ, m.typ.Len(),
			)
		}
		sum := acc[er.Edge.From]
		for j := range c {
			sum[j] += c[j]
		}
	}
	col, err := ctx.Store().Column(m.result)
	if err != nil {
		return err
	}
	ids := make([]types.EntityID, 0, len(acc))
	for id := range acc {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		rowIdx, ok := col.Index(id)
		if !ok {
			return eris.Errorf("graph map result component %q has no row for entity %d", m.result, id)
		}
		row := acc[id]
		if m.add {
			current := col.Row(rowIdx)
			for j := range row {
				row[j] += current[j]
			}
		}
		if err := col.SetRow(rowIdx, row); err != nil {
			return err
		}
	}
	return nil
}
