package history

import (
	"context"
	"fmt"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/saxena-dev/elodin/codec"
)

// archiveTickKey maps a tick to its archive key.
func archiveTickKey(tick uint64) string {
	return fmt.Sprintf("HIST:TICK-%d", tick)
}

// SnapshotArchive mirrors committed tick snapshots into a PrimitiveStorage
// as they land. It is an observability sink: losing it never affects the
// in-memory recorder or the run's results.
type SnapshotArchive struct {
	store PrimitiveStorage
}

func NewSnapshotArchive(store PrimitiveStorage) *SnapshotArchive {
	return &SnapshotArchive{store: store}
}

// SaveTick archives one committed tick.
func (a *SnapshotArchive) SaveTick(ctx context.Context, snap TickSnapshot) error {
	bz, err := codec.Encode(snap)
	if err != nil {
		return err
	}
	return a.store.SetBytes(ctx, archiveTickKey(snap.Tick), bz)
}

// LoadTick reads one archived tick back.
func (a *SnapshotArchive) LoadTick(ctx context.Context, tick uint64) (TickSnapshot, error) {
	bz, err := a.store.GetBytes(ctx, archiveTickKey(tick))
	if err != nil {
		return TickSnapshot{}, eris.Wrapf(err, "tick %d is not archived", tick)
	}
	return codec.Decode[TickSnapshot](bz)
}

// Ticks returns every archived tick in ascending order.
func (a *SnapshotArchive) Ticks(ctx context.Context) ([]uint64, error) {
	keys, err := a.store.Keys(ctx)
	if err != nil {
		return nil, err
	}
	var ticks []uint64
	for _, k := range keys {
		var tick uint64
		if _, err := fmt.Sscanf(k, "HIST:TICK-%d", &tick); err == nil {
			ticks = append(ticks, tick)
		}
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })
	return ticks, nil
}

func (a *SnapshotArchive) Close(ctx context.Context) error {
	return a.store.Close(ctx)
}
