package system

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/saxena-dev/elodin/assert"
	"github.com/saxena-dev/elodin/component"
	"github.com/saxena-dev/elodin/storage"
	"github.com/saxena-dev/elodin/types"
)

func newTestContext(t *testing.T, dt float64) *Context {
	t.Helper()
	logger := zerolog.Nop()
	store := storage.NewStore(component.NewManager())
	return NewContext(store, dt, nil, &logger)
}

func appendingSystem(name string, trace *[]string) System {
	return New(name,
		func(*Context) error {
			*trace = append(*trace, "init:"+name)
			return nil
		},
		func(*Context) error {
			*trace = append(*trace, "step:"+name)
			return nil
		},
	)
}

func TestComposeRunsLeftThenRight(t *testing.T) {
	ctx := newTestContext(t, 1)
	var trace []string
	s := Compose(appendingSystem("a", &trace), appendingSystem("b", &trace))

	assert.NilError(t, s.Init(ctx))
	assert.NilError(t, s.Step(ctx))
	assert.DeepEqual(t, trace, []string{"init:a", "init:b", "step:a", "step:b"})
}

func TestComposeAssociative(t *testing.T) {
	run := func(s System) []string {
		ctx := newTestContext(t, 1)
		assert.NilError(t, s.Init(ctx))
		assert.NilError(t, s.Step(ctx))
		return nil
	}

	var left, right []string
	a := appendingSystem("a", &left)
	b := appendingSystem("b", &left)
	c := appendingSystem("c", &left)
	run(Compose(Compose(a, b), c))

	a2 := appendingSystem("a", &right)
	b2 := appendingSystem("b", &right)
	c2 := appendingSystem("c", &right)
	run(Compose(a2, Compose(b2, c2)))

	assert.DeepEqual(t, left, right)
}

func TestPipeNames(t *testing.T) {
	var trace []string
	s := Pipe(
		appendingSystem("gravity", &trace),
		appendingSystem("drag", &trace),
		appendingSystem("integrate", &trace),
	)
	assert.DeepEqual(t, Names(s), []string{"gravity", "drag", "integrate"})
}

func TestDeclareVariableOutsideDeclarePhase(t *testing.T) {
	ctx := newTestContext(t, 1)
	_, err := ctx.DeclareVariable("x", types.F64())
	assert.Assert(t, err != nil)
}

func TestDeclareVariableIdempotentSameType(t *testing.T) {
	ctx := newTestContext(t, 1)
	ctx.BeginDeclare()
	defer ctx.EndDeclare()

	v1, err := ctx.DeclareVariable("x", types.F64())
	assert.NilError(t, err)
	v2, err := ctx.DeclareVariable("x", types.F64())
	assert.NilError(t, err)
	assert.Assert(t, v1 == v2)

	_, err = ctx.DeclareVariable("x", types.F64(3))
	assert.ErrorIs(t, err, ErrVariableConflict)
}

func TestAdvanceTimeAccumulates(t *testing.T) {
	ctx := newTestContext(t, 0.25)
	s := AdvanceTime(0.25)

	ctx.BeginDeclare()
	assert.NilError(t, s.Init(ctx))
	ctx.EndDeclare()

	for i := 0; i < 4; i++ {
		ctx.BeginStep(uint64(i + 1))
		assert.NilError(t, s.Step(ctx))
	}

	v, err := ctx.Variable(SimulationTime)
	assert.NilError(t, err)
	assert.Equal(t, v.Values[0], 1.0)
	assert.Equal(t, ctx.Tick(), uint64(4))
}

func TestUnresolvedCollectsAllInFirstReferenceOrder(t *testing.T) {
	ctx := newTestContext(t, 1)
	ctx.BeginDeclare()
	ctx.Resolve("b_missing")
	ctx.Resolve("a_missing")
	ctx.Resolve("b_missing")
	ctx.EndDeclare()

	assert.DeepEqual(t, ctx.Unresolved(), []string{"b_missing", "a_missing"})
}

func TestDeclareComponentRegistersAndCreatesColumn(t *testing.T) {
	ctx := newTestContext(t, 1)
	ctx.BeginDeclare()
	meta, err := ctx.DeclareComponent("derived", types.F64(3))
	ctx.EndDeclare()
	assert.NilError(t, err)
	assert.Equal(t, meta.Name, "derived")
	assert.True(t, ctx.Store().HasColumn("derived"))

	_, err = ctx.DeclareComponent("late", types.F64())
	assert.Assert(t, err != nil)
}
