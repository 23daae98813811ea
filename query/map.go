package query

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/saxena-dev/elodin/storage"
	"github.com/saxena-dev/elodin/system"
	"github.com/saxena-dev/elodin/types"
)

// MapFn is a pointwise row function. It receives one element slice per
// input component, in input order, and returns the result row. It must be a
// pure function of its inputs: it sees no other rows and no mutable pipeline
// state, which is what allows rows to be evaluated in parallel.
type MapFn func(in [][]float64) []float64

// Map builds a system that applies fn across the aligned rows of the input
// components and writes the results into a derived component. The derived
// component is declared at compile time and is available to later systems in
// the same pipeline. Result values replace previous ones each tick.
func Map(inputs []string, result string, typ types.ComponentType, fn MapFn) system.System {
	return newMapSystem(inputs, result, typ, fn, false)
}

// MapAdd is Map with accumulate semantics: each tick's results are summed
// into the result component instead of replacing it. Use it for force-style
// contributions where several systems feed one net value.
func MapAdd(inputs []string, result string, typ types.ComponentType, fn MapFn) system.System {
	return newMapSystem(inputs, result, typ, fn, true)
}

type mapSystem struct {
	name   string
	inputs []string
	result string
	typ    types.ComponentType
	fn     MapFn
	add    bool
}

func newMapSystem(inputs []string, result string, typ types.ComponentType, fn MapFn, add bool) system.System {
	return &mapSystem{
		name:   fmt.Sprintf("map(%s)", result),
		inputs: inputs,
		result: result,
		typ:    typ,
		fn:     fn,
		add:    add,
	}
}

func (m *mapSystem) Name() string { return m.name }

func (m *mapSystem) Init(ctx *system.Context) error {
	q := New(ctx, m.inputs...)
	if _, err := ctx.DeclareComponent(m.result, m.typ); err != nil {
		return err
	}
	if len(ctx.Unresolved()) > 0 {
		// Input components are missing; compilation will fail with the full
		// list, so there is no row set to seed.
		return nil
	}
	return seedResultRows(ctx, q, m.result, m.typ)
}

func (m *mapSystem) Step(ctx *system.Context) error {
	q := New(ctx, m.inputs...)
	res, err := q.Result()
	if err != nil {
		return err
	}
	out := make([][]float64, res.Len())
	ctx.Runner().Run(res.Len(), func(i int) {
		out[i] = m.fn(res.RowInputs(i))
	})
	col, err := ctx.Store().Column(m.result)
	if err != nil {
		return err
	}
	// All rows are computed before any write lands, so a map whose result is
	// also one of its inputs still sees a consistent snapshot.
	for i, id := range res.Entities {
		if len(out[i]) != m.typ.Len() {
			return eris.Errorf(
				"map %q returned %d elements for entity %d, component type %s requires %d",
				m.result, len(out[i]), id, m.typ, m.typ.Len(),
			)
		}
		rowIdx, ok := col.Index(id)
		if !ok {
			return eris.Errorf("map result component %q has no row for entity %d", m.result, id)
		}
		row := out[i]
		if m.add {
			current := col.Row(rowIdx)
			summed := make([]float64, len(row))
			for j := range row {
				summed[j] = current[j] + row[j]
			}
			row = summed
		}
		if err := col.SetRow(rowIdx, row); err != nil {
			return err
		}
	}
	return nil
}

// seedResultRows gives the result component a zero row for every entity the
// input query matches. The schema freezes right after compile, so the
// matching entity set is fixed for the whole run.
func seedResultRows(ctx *system.Context, q *Query, result string, typ types.ComponentType) error {
	ids, err := q.Entities()
	if err != nil {
		return err
	}
	meta, err := ctx.Store().Registry().ByName(result)
	if err != nil {
		return err
	}
	col, err := ctx.Store().EnsureColumn(meta)
	if err != nil {
		return err
	}
	zero, err := storage.NewValue(typ, make([]float64, typ.Len()))
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, held := col.Index(id); held {
			continue
		}
		if err := col.Upsert(id, zero); err != nil {
			return err
		}
	}
	return nil
}
