package elodin

import (
	"context"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/saxena-dev/elodin/component"
	"github.com/saxena-dev/elodin/cql"
	"github.com/saxena-dev/elodin/filter"
	"github.com/saxena-dev/elodin/history"
	"github.com/saxena-dev/elodin/statsd"
	"github.com/saxena-dev/elodin/storage"
	"github.com/saxena-dev/elodin/system"
	"github.com/saxena-dev/elodin/types"
)

// Exec is a compiled, runnable world. Each call to Run advances the
// simulation; state after each committed tick is retained, so the full run
// is replayable tick by tick.
type Exec struct {
	store    *storage.Store
	registry *component.Manager
	pipeline system.System
	ctx      *system.Context
	recorder *history.Recorder
	archive  *history.SnapshotArchive
	logger   zerolog.Logger

	dt          float64
	tick        uint64
	systemNames []string

	profile   map[string]float64
	tickTotal time.Duration
	simTotal  float64
	wallTotal time.Duration
}

// Run advances the simulation by the given number of ticks. Each tick
// commits atomically: if any system fails or produces a non-finite value,
// that tick's writes are rolled back, history keeps every previously
// committed tick, and the error is returned.
func (e *Exec) Run(ctx context.Context, ticks int) error {
	runStart := time.Now()
	for i := 0; i < ticks; i++ {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "run canceled")
		}
		if err := e.doTick(ctx); err != nil {
			e.logger.Error().
				Uint64("tick", e.tick+1).
				Msg("tick failed, rolled back")
			return err
		}
	}
	e.wallTotal += time.Since(runStart)
	e.simTotal += float64(ticks) * e.dt
	rtf := 0.0
	if e.wallTotal > 0 {
		rtf = e.simTotal / e.wallTotal.Seconds()
	}
	statsd.EmitRunStats(e.tick, rtf)
	e.logger.Info().
		Int("ticks", ticks).
		Uint64("current_tick", e.tick).
		Msg("run complete")
	return nil
}

func (e *Exec) doTick(ctx context.Context) error {
	tickStart := time.Now()
	tick := e.tick + 1

	copyStart := time.Now()
	snap := e.store.SnapshotBuffers()
	e.addStage("copy_to_host", time.Since(copyStart))

	e.ctx.BeginStep(tick)
	if err := e.pipeline.Step(e.ctx); err != nil {
		e.store.RestoreBuffers(snap)
		return eris.Wrapf(err, "tick %d failed", tick)
	}
	if err := e.checkFinite(tick); err != nil {
		e.store.RestoreBuffers(snap)
		return err
	}

	histStart := time.Now()
	e.recorder.Record(tick, e.store.Columns())
	if e.archive != nil {
		// The archive is a best-effort mirror. A failed write must not
		// unwind a tick the recorder already holds.
		snapTick, _ := e.recorder.At(tick)
		if err := e.archive.SaveTick(ctx, snapTick); err != nil {
			e.logger.Warn().
				Err(err).
				Uint64("tick", tick).
				Msg("archive write failed, tick kept")
		}
	}
	e.addStage("add_to_history", time.Since(histStart))

	e.tick = tick
	e.tickTotal += time.Since(tickStart)
	statsd.EmitTickStat(tickStart)
	return nil
}

// checkFinite scans every floating-point column for NaN or Inf. U64
// columns hold identity data and are exempt.
func (e *Exec) checkFinite(tick uint64) error {
	for _, col := range e.store.Columns() {
		meta := col.Metadata()
		if meta.Type.Prim != types.PrimF64 && meta.Type.Prim != types.PrimF32 {
			continue
		}
		for i := 0; i < col.Len(); i++ {
			for _, v := range col.Row(i) {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return eris.Wrapf(ErrNumericInstability,
						"tick %d: component %q entity %d", tick, meta.Name, col.EntityIDs()[i])
				}
			}
		}
	}
	return nil
}

func (e *Exec) addStage(stage string, d time.Duration) {
	e.profile[stage] += d.Seconds()
	statsd.EmitStageStat(stage, d)
}

// Tick returns the number of committed ticks.
func (e *Exec) Tick() uint64 { return e.tick }

// TimeStep returns the simulation time step in seconds.
func (e *Exec) TimeStep() float64 { return e.dt }

// History returns every committed tick snapshot, starting with the tick-0
// pre-run state.
func (e *Exec) History() []history.TickSnapshot {
	return e.recorder.Ticks()
}

// ColumnHistory returns one component's full series across all committed
// ticks.
func (e *Exec) ColumnHistory(name string) ([]history.ColumnSnapshot, error) {
	return e.recorder.ColumnHistory(name)
}

// ColumnArray returns one component's current rows in ascending entity
// order, decoded to leaves.
func (e *Exec) ColumnArray(name string) ([][]float64, error) {
	col, err := e.store.Column(name)
	if err != nil {
		return nil, err
	}
	return col.Rows(), nil
}

// Value returns one component value keyed by committed tick and entity.
func (e *Exec) Value(tick uint64, id types.EntityID, name string) ([]float64, bool) {
	return e.recorder.Value(tick, id, name)
}

// Variables returns the current value of every pipeline variable,
// including simulation_time.
func (e *Exec) Variables() map[string][]float64 {
	return e.ctx.CurrentArrays()
}

// EntityByName resolves a name given at spawn time.
func (e *Exec) EntityByName(name string) (types.EntityID, bool) {
	return e.store.EntityByName(name)
}

// Search returns the entities whose component sets match the filter, in
// ascending id order.
func (e *Exec) Search(f filter.ComponentFilter) []types.EntityID {
	var out []types.EntityID
	for i := 0; i < e.store.EntityCount(); i++ {
		id := types.EntityID(i)
		if f.MatchesComponents(e.store.ComponentsOf(id)) {
			out = append(out, id)
		}
	}
	return out
}

// CQL parses a component query language expression and runs it as a
// search.
func (e *Exec) CQL(query string) ([]types.EntityID, error) {
	f, err := cql.Parse(query, e.registry.ByName)
	if err != nil {
		return nil, err
	}
	return e.Search(f), nil
}

// Profile returns per-stage timing diagnostics: cumulative build, compile,
// copy_to_host, and add_to_history seconds, the mean committed tick
// duration, and the real-time factor of all Run calls so far. Values are
// diagnostics only and never affect results.
func (e *Exec) Profile() map[string]float64 {
	out := make(map[string]float64, len(e.profile)+2)
	for k, v := range e.profile {
		out[k] = v
	}
	if e.tick > 0 {
		out["tick"] = e.tickTotal.Seconds() / float64(e.tick)
	}
	if e.wallTotal > 0 {
		out["real_time_factor"] = e.simTotal / e.wallTotal.Seconds()
	}
	return out
}

// WriteToDir persists the run's manifest and full history as JSON files
// under dir. ReadRunResults reads them back exactly.
func (e *Exec) WriteToDir(dir string) error {
	manifest := history.NewManifest(e.dt, int(e.tick), e.registry.Components())
	return history.WriteToDir(dir, manifest, e.recorder)
}

// GetRegisteredComponents returns the metadata of every registered
// component.
func (e *Exec) GetRegisteredComponents() []types.ComponentMetadata {
	return e.registry.Components()
}

// GetRegisteredSystems returns the pipeline's system names in execution
// order.
func (e *Exec) GetRegisteredSystems() []string {
	return e.systemNames
}
