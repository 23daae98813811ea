package elodin_test

import (
	"context"
	"errors"
	"math"
	"testing"

	elodin "github.com/saxena-dev/elodin"
	"github.com/saxena-dev/elodin/assert"
	"github.com/saxena-dev/elodin/filter"
	"github.com/saxena-dev/elodin/history"
	"github.com/saxena-dev/elodin/query"
	"github.com/saxena-dev/elodin/storage"
	"github.com/saxena-dev/elodin/system"
	"github.com/saxena-dev/elodin/types"
)

func newTestWorld(t *testing.T) *elodin.World {
	t.Helper()
	w, err := elodin.NewWorld(elodin.WithConfig(elodin.WorldConfig{LogLevel: "disabled", TimeStep: 0.1}))
	assert.NilError(t, err)
	return w
}

func spawnScalar(t *testing.T, w *elodin.World, name string, v float64) types.EntityID {
	t.Helper()
	id, err := w.Spawn(elodin.C(name, storage.F64Scalar(v)))
	assert.NilError(t, err)
	return id
}

func TestCompileReportsAllMissingComponents(t *testing.T) {
	w := newTestWorld(t)
	pipeline := system.Pipe(
		query.Map([]string{"ghost_a"}, "out_a", types.F64(), func([][]float64) []float64 {
			return []float64{0}
		}),
		query.Map([]string{"ghost_b", "ghost_c"}, "out_b", types.F64(), func([][]float64) []float64 {
			return []float64{0}
		}),
	)

	_, err := w.Compile(pipeline)
	assert.ErrorIs(t, err, elodin.ErrPipelineValidation)

	var verr *elodin.PipelineValidationError
	assert.True(t, errors.As(err, &verr))
	assert.DeepEqual(t, verr.Missing, []string{"ghost_a", "ghost_b", "ghost_c"})
}

func TestWorldConsumedByCompile(t *testing.T) {
	w := newTestWorld(t)
	spawnScalar(t, w, "x", 1)

	_, err := w.Compile(system.Fn("noop", func(*system.Context) error { return nil }))
	assert.NilError(t, err)

	_, err = w.Spawn(elodin.C("x", storage.F64Scalar(2)))
	assert.ErrorIs(t, err, elodin.ErrWorldCompiled)
	_, err = w.Compile(system.Fn("noop", func(*system.Context) error { return nil }))
	assert.ErrorIs(t, err, elodin.ErrWorldCompiled)
}

func TestInsertUnknownEntity(t *testing.T) {
	w := newTestWorld(t)
	err := w.Insert(42, elodin.C("x", storage.F64Scalar(1)))
	assert.ErrorIs(t, err, elodin.ErrUnknownEntity)
}

func TestInsertOverwritesAndRegistersConflicts(t *testing.T) {
	w := newTestWorld(t)
	id := spawnScalar(t, w, "x", 1)

	assert.NilError(t, w.Insert(id, elodin.C("x", storage.F64Scalar(5))))
	err := w.Insert(id, elodin.C("x", storage.F64Value(1, 2)))
	assert.ErrorIs(t, err, elodin.ErrTypeConflict)
}

func TestAssetConflictThroughWorld(t *testing.T) {
	w := newTestWorld(t)
	h1, err := w.InsertAsset(storage.RawAsset{AssetName: "cube", Data: []byte("v1")})
	assert.NilError(t, err)
	h2, err := w.InsertAsset(storage.RawAsset{AssetName: "cube", Data: []byte("v1")})
	assert.NilError(t, err)
	assert.Equal(t, h1, h2)

	_, err = w.InsertAsset(storage.RawAsset{AssetName: "cube", Data: []byte("v2")})
	assert.ErrorIs(t, err, elodin.ErrAssetConflict)
}

// counter returns a pipeline that adds 1 to the "x" component every tick.
func counter() system.System {
	return query.MapAdd([]string{"x"}, "x", types.F64(), func([][]float64) []float64 {
		return []float64{1}
	})
}

func TestRunRecordsFullHistory(t *testing.T) {
	w := newTestWorld(t)
	id := spawnScalar(t, w, "x", 0)

	exec, err := w.Compile(counter())
	assert.NilError(t, err)
	assert.NilError(t, exec.Run(context.Background(), 5))

	assert.Equal(t, exec.Tick(), uint64(5))
	assert.Len(t, exec.History(), 6)
	for tick := uint64(0); tick <= 5; tick++ {
		v, ok := exec.Value(tick, id, "x")
		assert.True(t, ok)
		assert.DeepEqual(t, v, []float64{float64(tick)})
	}

	rows, err := exec.ColumnArray("x")
	assert.NilError(t, err)
	assert.DeepEqual(t, rows, [][]float64{{5}})
}

func TestRunResumesAcrossCalls(t *testing.T) {
	w := newTestWorld(t)
	id := spawnScalar(t, w, "x", 0)

	exec, err := w.Compile(counter())
	assert.NilError(t, err)
	assert.NilError(t, exec.Run(context.Background(), 2))
	assert.NilError(t, exec.Run(context.Background(), 3))

	v, ok := exec.Value(5, id, "x")
	assert.True(t, ok)
	assert.DeepEqual(t, v, []float64{5})
}

func TestFailedTickRollsBack(t *testing.T) {
	w := newTestWorld(t)
	id := spawnScalar(t, w, "x", 0)

	boom := errors.New("deliberate failure")
	pipeline := system.Pipe(
		counter(),
		system.Fn("fail_at_3", func(ctx *system.Context) error {
			if ctx.Tick() == 3 {
				return boom
			}
			return nil
		}),
	)

	exec, err := w.Compile(pipeline)
	assert.NilError(t, err)
	err = exec.Run(context.Background(), 10)
	assert.ErrorIs(t, err, boom)

	// Ticks 1 and 2 committed; tick 3's writes were rolled back.
	assert.Equal(t, exec.Tick(), uint64(2))
	assert.Len(t, exec.History(), 3)
	rows, err := exec.ColumnArray("x")
	assert.NilError(t, err)
	assert.DeepEqual(t, rows, [][]float64{{2}})

	v, ok := exec.Value(2, id, "x")
	assert.True(t, ok)
	assert.DeepEqual(t, v, []float64{2})
}

func TestNumericInstabilityRollsBack(t *testing.T) {
	w := newTestWorld(t)
	spawnScalar(t, w, "x", 0)

	nanAt2 := query.Map([]string{"x"}, "y", types.F64(), func(in [][]float64) []float64 {
		if in[0][0] >= 2 {
			return []float64{math.NaN()}
		}
		return []float64{0}
	})
	exec, err := w.Compile(system.Pipe(counter(), nanAt2))
	assert.NilError(t, err)

	err = exec.Run(context.Background(), 10)
	assert.ErrorIs(t, err, elodin.ErrNumericInstability)
	assert.Equal(t, exec.Tick(), uint64(1))

	rows, err := exec.ColumnArray("y")
	assert.NilError(t, err)
	assert.DeepEqual(t, rows, [][]float64{{0}})
}

func TestSimulationTimeAdvances(t *testing.T) {
	w := newTestWorld(t)
	spawnScalar(t, w, "x", 0)

	exec, err := w.Compile(counter(), elodin.WithTimeStep(0.25))
	assert.NilError(t, err)
	assert.NilError(t, exec.Run(context.Background(), 4))

	vars := exec.Variables()
	assert.DeepEqual(t, vars[system.SimulationTime], []float64{1.0})
	assert.Equal(t, exec.TimeStep(), 0.25)
}

func TestSearchAndCQL(t *testing.T) {
	w := newTestWorld(t)
	a, err := w.Spawn(elodin.Bundles(
		elodin.C("pos", storage.F64Scalar(1)),
		elodin.C("vel", storage.F64Scalar(2)),
	))
	assert.NilError(t, err)
	b := spawnScalar(t, w, "pos", 3)

	exec, err := w.Compile(system.Fn("noop", func(*system.Context) error { return nil }))
	assert.NilError(t, err)

	assert.DeepEqual(t, exec.Search(filter.Contains("pos")), []types.EntityID{a, b})
	assert.DeepEqual(t, exec.Search(filter.Exact("pos")), []types.EntityID{b})

	got, err := exec.CQL("CONTAINS(pos) & !CONTAINS(vel)")
	assert.NilError(t, err)
	assert.DeepEqual(t, got, []types.EntityID{b})

	_, err = exec.CQL("CONTAINS(ghost)")
	assert.Assert(t, err != nil)
}

func TestProfileStageKeys(t *testing.T) {
	w := newTestWorld(t)
	spawnScalar(t, w, "x", 0)

	exec, err := w.Compile(counter())
	assert.NilError(t, err)
	assert.NilError(t, exec.Run(context.Background(), 3))

	profile := exec.Profile()
	for _, stage := range []string{
		"build", "compile", "tick", "copy_to_host", "add_to_history", "real_time_factor",
	} {
		_, ok := profile[stage]
		assert.True(t, ok, "missing profile stage %q", stage)
	}
	assert.Assert(t, profile["real_time_factor"] > 0)
}

func TestPoolClientMatchesSequential(t *testing.T) {
	run := func(client *elodin.Client) [][]float64 {
		w := newTestWorld(t)
		for i := 0; i < 50; i++ {
			spawnScalar(t, w, "x", float64(i))
		}
		square := query.Map([]string{"x"}, "x_sq", types.F64(), func(in [][]float64) []float64 {
			return []float64{in[0][0] * in[0][0]}
		})
		exec, err := w.Compile(square, elodin.WithClient(client))
		assert.NilError(t, err)
		assert.NilError(t, exec.Run(context.Background(), 3))
		rows, err := exec.ColumnArray("x_sq")
		assert.NilError(t, err)
		return rows
	}

	assert.DeepEqual(t, run(elodin.CPU()), run(elodin.Pool(4)))
}

func TestWriteToDirFromExec(t *testing.T) {
	w := newTestWorld(t)
	spawnScalar(t, w, "x", 0)

	exec, err := w.Compile(counter(), elodin.WithTimeStep(0.5))
	assert.NilError(t, err)
	assert.NilError(t, exec.Run(context.Background(), 4))

	dir := t.TempDir()
	assert.NilError(t, exec.WriteToDir(dir))

	run, err := history.ReadRunResults(dir)
	assert.NilError(t, err)
	assert.Equal(t, run.Manifest.Ticks, 4)
	assert.Equal(t, run.Manifest.TimeStep, 0.5)
	assert.Len(t, run.Ticks, 5)

	col, err := run.Column("x")
	assert.NilError(t, err)
	assert.DeepEqual(t, col[4].Rows, [][]float64{{4}})
}

func TestSnapshotArchiveMirrorsCommittedTicks(t *testing.T) {
	w := newTestWorld(t)
	id := spawnScalar(t, w, "x", 0)

	archive := history.NewSnapshotArchive(history.NewMapStorage())
	exec, err := w.Compile(counter(), elodin.WithSnapshotArchive(archive))
	assert.NilError(t, err)
	assert.NilError(t, exec.Run(context.Background(), 3))

	ticks, err := archive.Ticks(context.Background())
	assert.NilError(t, err)
	assert.DeepEqual(t, ticks, []uint64{1, 2, 3})

	snap, err := archive.LoadTick(context.Background(), 2)
	assert.NilError(t, err)
	col, ok := snap.Column("x")
	assert.True(t, ok)
	v, ok := col.Value(id)
	assert.True(t, ok)
	assert.DeepEqual(t, v, []float64{2})
}

// flakyStorage accepts a fixed number of writes and then fails every
// SetBytes, simulating an archive backend outage mid-run.
type flakyStorage struct {
	*history.MapStorage
	writes    int
	failAfter int
}

func (f *flakyStorage) SetBytes(ctx context.Context, key string, value []byte) error {
	f.writes++
	if f.writes > f.failAfter {
		return errors.New("storage unavailable")
	}
	return f.MapStorage.SetBytes(ctx, key, value)
}

func TestArchiveFailureDoesNotUnwindTicks(t *testing.T) {
	w := newTestWorld(t)
	id := spawnScalar(t, w, "x", 0)

	store := &flakyStorage{MapStorage: history.NewMapStorage(), failAfter: 2}
	archive := history.NewSnapshotArchive(store)
	exec, err := w.Compile(counter(), elodin.WithSnapshotArchive(archive))
	assert.NilError(t, err)

	// The archive dies after tick 2, but every tick still commits.
	assert.NilError(t, exec.Run(context.Background(), 5))
	assert.Equal(t, exec.Tick(), uint64(5))
	assert.Len(t, exec.History(), 6)
	v, ok := exec.Value(5, id, "x")
	assert.True(t, ok)
	assert.DeepEqual(t, v, []float64{5})

	ticks, err := archive.Ticks(context.Background())
	assert.NilError(t, err)
	assert.DeepEqual(t, ticks, []uint64{1, 2})

	// A later run keeps committing from where the engine left off.
	assert.NilError(t, exec.Run(context.Background(), 1))
	assert.Equal(t, exec.Tick(), uint64(6))
	assert.Len(t, exec.History(), 7)
	v, ok = exec.Value(6, id, "x")
	assert.True(t, ok)
	assert.DeepEqual(t, v, []float64{6})
}

func TestRegisterComponentAheadOfValues(t *testing.T) {
	w := newTestWorld(t)
	spawnScalar(t, w, "x", 1)
	assert.NilError(t, w.RegisterComponent("target", types.F64(3), types.Metadata{
		"priority": types.IntValue(5),
	}))

	// The pipeline can reference target even though nothing holds it.
	pipeline := system.New("reads_target",
		func(ctx *system.Context) error {
			query.New(ctx, "target")
			return nil
		},
		func(ctx *system.Context) error {
			res, err := query.New(ctx, "target").Result()
			if err != nil {
				return err
			}
			if res.Len() != 0 {
				return errors.New("expected empty result")
			}
			return nil
		},
	)
	exec, err := w.Compile(pipeline)
	assert.NilError(t, err)
	assert.NilError(t, exec.Run(context.Background(), 1))
}
