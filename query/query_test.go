package query

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/saxena-dev/elodin/assert"
	"github.com/saxena-dev/elodin/component"
	"github.com/saxena-dev/elodin/storage"
	"github.com/saxena-dev/elodin/system"
	"github.com/saxena-dev/elodin/types"
)

func newTestContext(t *testing.T) *system.Context {
	t.Helper()
	logger := zerolog.Nop()
	store := storage.NewStore(component.NewManager())
	return system.NewContext(store, 1, nil, &logger)
}

func mustSet(t *testing.T, ctx *system.Context, id types.EntityID, name string, typ types.ComponentType, v storage.Value) {
	t.Helper()
	meta, err := ctx.Store().Registry().Register(name, typ, false, nil)
	assert.NilError(t, err)
	assert.NilError(t, ctx.Store().SetValue(id, meta, v))
}

func spawnN(t *testing.T, ctx *system.Context, n int) []types.EntityID {
	t.Helper()
	ids := make([]types.EntityID, n)
	for i := range ids {
		id, err := ctx.Store().AllocEntity()
		assert.NilError(t, err)
		ids[i] = id
	}
	return ids
}

func TestQueryInnerJoin(t *testing.T) {
	ctx := newTestContext(t)
	ids := spawnN(t, ctx, 4)

	// pos on all four, vel only on 0 and 2.
	for i, id := range ids {
		mustSet(t, ctx, id, "pos", types.F64(), storage.F64Scalar(float64(i)))
	}
	mustSet(t, ctx, ids[2], "vel", types.F64(), storage.F64Scalar(20))
	mustSet(t, ctx, ids[0], "vel", types.F64(), storage.F64Scalar(0))

	res, err := New(ctx, "pos", "vel").Result()
	assert.NilError(t, err)
	assert.DeepEqual(t, res.Entities, []types.EntityID{ids[0], ids[2]})
	assert.DeepEqual(t, res.Rows("pos"), [][]float64{{0}, {2}})
	assert.DeepEqual(t, res.Rows("vel"), [][]float64{{0}, {20}})
}

func TestQueryJoinEqualsCombinedQuery(t *testing.T) {
	ctx := newTestContext(t)
	ids := spawnN(t, ctx, 3)
	for _, id := range ids {
		mustSet(t, ctx, id, "a", types.F64(), storage.F64Scalar(1))
	}
	mustSet(t, ctx, ids[1], "b", types.F64(), storage.F64Scalar(2))

	joined, err := New(ctx, "a").Join(New(ctx, "b")).Entities()
	assert.NilError(t, err)
	combined, err := New(ctx, "a", "b").Entities()
	assert.NilError(t, err)
	assert.DeepEqual(t, joined, combined)
	assert.DeepEqual(t, joined, []types.EntityID{ids[1]})
}

func TestQueryEmptyResultIsValid(t *testing.T) {
	ctx := newTestContext(t)
	ids := spawnN(t, ctx, 2)
	mustSet(t, ctx, ids[0], "a", types.F64(), storage.F64Scalar(1))
	mustSet(t, ctx, ids[1], "b", types.F64(), storage.F64Scalar(2))

	res, err := New(ctx, "a", "b").Result()
	assert.NilError(t, err)
	assert.Equal(t, res.Len(), 0)
}

func TestQueryUnregisteredComponentFails(t *testing.T) {
	ctx := newTestContext(t)
	_, err := New(ctx, "nope").Result()
	assert.Assert(t, err != nil)
}

func TestQueryRegisteredButUnheldIsEmpty(t *testing.T) {
	ctx := newTestContext(t)
	_, err := ctx.Store().Registry().Register("lonely", types.F64(), false, nil)
	assert.NilError(t, err)

	res, err := New(ctx, "lonely").Result()
	assert.NilError(t, err)
	assert.Equal(t, res.Len(), 0)
}

func TestMapWritesDerivedComponent(t *testing.T) {
	ctx := newTestContext(t)
	ids := spawnN(t, ctx, 3)
	for i, id := range ids {
		mustSet(t, ctx, id, "x", types.F64(), storage.F64Scalar(float64(i+1)))
	}

	double := Map([]string{"x"}, "x2", types.F64(), func(in [][]float64) []float64 {
		return []float64{in[0][0] * 2}
	})

	ctx.BeginDeclare()
	assert.NilError(t, double.Init(ctx))
	ctx.EndDeclare()
	assert.Len(t, ctx.Unresolved(), 0)

	assert.NilError(t, double.Step(ctx))

	res, err := New(ctx, "x2").Result()
	assert.NilError(t, err)
	assert.DeepEqual(t, res.Rows("x2"), [][]float64{{2}, {4}, {6}})

	// Map replaces each tick.
	assert.NilError(t, double.Step(ctx))
	res, err = New(ctx, "x2").Result()
	assert.NilError(t, err)
	assert.DeepEqual(t, res.Rows("x2"), [][]float64{{2}, {4}, {6}})
}

func TestMapAddAccumulates(t *testing.T) {
	ctx := newTestContext(t)
	ids := spawnN(t, ctx, 1)
	mustSet(t, ctx, ids[0], "x", types.F64(), storage.F64Scalar(5))

	acc := MapAdd([]string{"x"}, "sum", types.F64(), func(in [][]float64) []float64 {
		return []float64{in[0][0]}
	})

	ctx.BeginDeclare()
	assert.NilError(t, acc.Init(ctx))
	ctx.EndDeclare()

	assert.NilError(t, acc.Step(ctx))
	assert.NilError(t, acc.Step(ctx))

	res, err := New(ctx, "sum").Result()
	assert.NilError(t, err)
	assert.DeepEqual(t, res.Rows("sum"), [][]float64{{10}})
}

func TestMapRecordsUnresolvedInputs(t *testing.T) {
	ctx := newTestContext(t)
	m := Map([]string{"ghost_a", "ghost_b"}, "out", types.F64(), func([][]float64) []float64 {
		return []float64{0}
	})
	ctx.BeginDeclare()
	assert.NilError(t, m.Init(ctx))
	ctx.EndDeclare()
	assert.DeepEqual(t, ctx.Unresolved(), []string{"ghost_a", "ghost_b"})
}

func TestMapWrongOutputLength(t *testing.T) {
	ctx := newTestContext(t)
	ids := spawnN(t, ctx, 1)
	mustSet(t, ctx, ids[0], "x", types.F64(), storage.F64Scalar(1))
	m := Map([]string{"x"}, "out", types.F64(3), func([][]float64) []float64 {
		return []float64{1}
	})
	ctx.BeginDeclare()
	assert.NilError(t, m.Init(ctx))
	ctx.EndDeclare()
	assert.Assert(t, m.Step(ctx) != nil)
}

func TestTotalGraphPairCounts(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		ctx := newTestContext(t)
		spawnN(t, ctx, n)
		edges, err := NewGraph(ctx, TotalGraph()).Edges()
		assert.NilError(t, err)
		assert.Len(t, edges, n*(n-1))
		for _, e := range edges {
			assert.Assert(t, e.From != e.To)
		}
	}
}

func TestExplicitEdgesAndReverse(t *testing.T) {
	ctx := newTestContext(t)
	ids := spawnN(t, ctx, 3)
	mustSet(t, ctx, ids[0], "link", types.U64(2), storage.U64Pair(uint64(ids[1]), uint64(ids[2])))

	edges, err := NewGraph(ctx, Edges("link")).Edges()
	assert.NilError(t, err)
	assert.Len(t, edges, 1)
	assert.Equal(t, edges[0].From, ids[1])
	assert.Equal(t, edges[0].To, ids[2])

	rev, err := NewGraph(ctx, EdgesReversed("link")).Edges()
	assert.NilError(t, err)
	assert.Equal(t, rev[0].From, ids[2])
	assert.Equal(t, rev[0].To, ids[1])
}

func TestDanglingEdgeEndpointsExcluded(t *testing.T) {
	ctx := newTestContext(t)
	ids := spawnN(t, ctx, 2)
	// One good edge, one pointing at an entity that was never spawned.
	mustSet(t, ctx, ids[0], "link", types.U64(2), storage.U64Pair(uint64(ids[0]), uint64(ids[1])))
	meta, err := ctx.Store().Registry().ByName("link")
	assert.NilError(t, err)
	assert.NilError(t, ctx.Store().SetValue(ids[1], meta, storage.U64Pair(uint64(ids[0]), 12345)))

	edges, err := NewGraph(ctx, Edges("link")).Edges()
	assert.NilError(t, err)
	assert.Len(t, edges, 1)
	assert.Equal(t, edges[0].From, ids[0])
	assert.Equal(t, edges[0].To, ids[1])
}

func TestEdgeComponentMustBeU64Pair(t *testing.T) {
	ctx := newTestContext(t)
	ids := spawnN(t, ctx, 1)
	mustSet(t, ctx, ids[0], "bad_edge", types.F64(2), storage.F64Value(0, 1))

	_, err := NewGraph(ctx, Edges("bad_edge")).Edges()
	assert.Assert(t, err != nil)
}

func TestGraphMapSumsPerSourceEntity(t *testing.T) {
	ctx := newTestContext(t)
	ids := spawnN(t, ctx, 3)
	for i, id := range ids {
		mustSet(t, ctx, id, "charge", types.F64(), storage.F64Scalar(float64(i+1)))
	}

	// Sum each entity's neighbors' charges over the complete graph.
	sum := GraphMap(
		TotalGraph(), []string{"charge"}, []string{"charge"}, "neighbor_sum", types.F64(),
		func(_, to [][]float64) []float64 {
			return []float64{to[0][0]}
		},
	)

	ctx.BeginDeclare()
	assert.NilError(t, sum.Init(ctx))
	ctx.EndDeclare()
	assert.NilError(t, sum.Step(ctx))

	res, err := New(ctx, "neighbor_sum").Result()
	assert.NilError(t, err)
	// charges are 1,2,3; each entity sums the other two.
	assert.DeepEqual(t, res.Rows("neighbor_sum"), [][]float64{{5}, {4}, {3}})
}

func TestGraphMapUntouchedEntityGetsZero(t *testing.T) {
	ctx := newTestContext(t)
	ids := spawnN(t, ctx, 3)
	for _, id := range ids {
		mustSet(t, ctx, id, "charge", types.F64(), storage.F64Scalar(2))
	}
	// A single explicit edge; entities 1 and 2 are sources of nothing.
	mustSet(t, ctx, ids[0], "link", types.U64(2), storage.U64Pair(uint64(ids[0]), uint64(ids[1])))

	sum := GraphMap(
		Edges("link"), []string{"charge"}, []string{"charge"}, "pulled", types.F64(),
		func(_, to [][]float64) []float64 {
			return []float64{to[0][0]}
		},
	)

	ctx.BeginDeclare()
	assert.NilError(t, sum.Init(ctx))
	ctx.EndDeclare()
	assert.NilError(t, sum.Step(ctx))

	res, err := New(ctx, "pulled").Result()
	assert.NilError(t, err)
	assert.DeepEqual(t, res.Rows("pulled"), [][]float64{{2}, {0}, {0}})
}
