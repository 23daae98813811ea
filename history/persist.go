package history

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/saxena-dev/elodin/codec"
	"github.com/saxena-dev/elodin/component"
	"github.com/saxena-dev/elodin/types"
)

const (
	manifestFile = "manifest.json"
	historyFile  = "history.json"
)

// Manifest describes one persisted run: its identity, time step, tick
// count, and the full component schema including fingerprints.
type Manifest struct {
	RunID      string                    `json:"run_id"`
	TimeStep   float64                   `json:"time_step"`
	Ticks      int                       `json:"ticks"`
	CreatedAt  time.Time                 `json:"created_at"`
	Components []types.ComponentMetadata `json:"components"`
}

// NewManifest builds a manifest with a fresh run id.
func NewManifest(timeStep float64, ticks int, components []types.ComponentMetadata) Manifest {
	return Manifest{
		RunID:      uuid.NewString(),
		TimeStep:   timeStep,
		Ticks:      ticks,
		CreatedAt:  time.Now().UTC(),
		Components: components,
	}
}

type historyPayload struct {
	Ticks []TickSnapshot `json:"ticks"`
}

// WriteToDir persists one run's schema and full history under dir.
func WriteToDir(dir string, manifest Manifest, recorder *Recorder) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "failed to create run directory %q", dir)
	}
	manifestBz, err := codec.Encode(manifest)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), manifestBz, 0o644); err != nil {
		return eris.Wrap(err, "failed to write manifest")
	}
	historyBz, err := codec.Encode(historyPayload{Ticks: recorder.Ticks()})
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, historyFile), historyBz, 0o644); err != nil {
		return eris.Wrap(err, "failed to write history")
	}
	return nil
}

// RunResult is one run read back from durable storage.
type RunResult struct {
	Manifest Manifest
	Ticks    []TickSnapshot
}

// Column returns one component's series across the run.
func (r *RunResult) Column(name string) ([]ColumnSnapshot, error) {
	out := make([]ColumnSnapshot, 0, len(r.Ticks))
	for i := range r.Ticks {
		col, ok := r.Ticks[i].Column(name)
		if !ok {
			return nil, eris.Errorf("component %q is not present in run %s", name, r.Manifest.RunID)
		}
		out = append(out, *col)
	}
	return out, nil
}

// ReadRunResults reads one persisted run back from dir.
func ReadRunResults(dir string) (*RunResult, error) {
	manifestBz, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read manifest in %q", dir)
	}
	manifest, err := codec.Decode[Manifest](manifestBz)
	if err != nil {
		return nil, err
	}
	historyBz, err := os.ReadFile(filepath.Join(dir, historyFile))
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read history in %q", dir)
	}
	payload, err := codec.Decode[historyPayload](historyBz)
	if err != nil {
		return nil, err
	}
	return &RunResult{Manifest: manifest, Ticks: payload.Ticks}, nil
}

// ReadBatchResults reads every run under dir: either dir itself holds one
// run, or each subdirectory holds one. Returns the runs plus each run's
// tick count, and rejects a batch whose runs disagree on component schema.
func ReadBatchResults(dir string) ([]*RunResult, []int, error) {
	if _, err := os.Stat(filepath.Join(dir, manifestFile)); err == nil {
		run, err := ReadRunResults(dir)
		if err != nil {
			return nil, nil, err
		}
		return []*RunResult{run}, []int{run.Manifest.Ticks}, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "failed to read batch directory %q", dir)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var runs []*RunResult
	var ticks []int
	for _, name := range names {
		run, err := ReadRunResults(filepath.Join(dir, name))
		if err != nil {
			return nil, nil, err
		}
		runs = append(runs, run)
		ticks = append(ticks, run.Manifest.Ticks)
	}
	if len(runs) == 0 {
		return nil, nil, eris.Errorf("no runs found under %q", dir)
	}
	if err := verifyBatchSchema(runs); err != nil {
		return nil, nil, err
	}
	return runs, ticks, nil
}

// verifyBatchSchema rejects batches whose runs were produced by worlds with
// diverging component schemas.
func verifyBatchSchema(runs []*RunResult) error {
	first, err := codec.Encode(runs[0].Manifest.Components)
	if err != nil {
		return err
	}
	for _, run := range runs[1:] {
		other, err := codec.Encode(run.Manifest.Components)
		if err != nil {
			return err
		}
		same, err := component.IsSchemaValid(first, other)
		if err != nil {
			return err
		}
		if !same {
			return eris.Errorf(
				"run %s has a component schema incompatible with run %s",
				run.Manifest.RunID, runs[0].Manifest.RunID,
			)
		}
	}
	return nil
}
