package dispatch

import (
	"context"

	"github.com/lattice-sim/lattice-sim/sim"
	"github.com/lattice-sim/lattice-sim/sim/store"
	"github.com/lattice-sim/lattice-sim/sim/trace"
)

// TrajectorySink receives history packets from the consumer goroutine and
// serves stored trajectories back when a replica resumes.
type TrajectorySink interface {
	WritePacket(ctx context.Context, p sim.HistoryPacket) error
	ReadTrajectory(ctx context.Context, seed int64) ([]sim.TrajectoryElement, error)
	TruncateTrajectory(ctx context.Context, seed int64, step int) error
}

// SQLiteSink writes trajectories into the state database.
type SQLiteSink struct {
	DB *store.StateDB
}

func (s SQLiteSink) WritePacket(ctx context.Context, p sim.HistoryPacket) error {
	return s.DB.WriteTrajectory(ctx, p)
}

func (s SQLiteSink) ReadTrajectory(ctx context.Context, seed int64) ([]sim.TrajectoryElement, error) {
	return s.DB.ReadTrajectory(ctx, seed)
}

func (s SQLiteSink) TruncateTrajectory(ctx context.Context, seed int64, step int) error {
	return s.DB.TruncateTrajectory(ctx, seed, step)
}

// ZstdSink writes trajectories as compressed JSON lines, one file per seed.
type ZstdSink struct {
	W *trace.JSONLZstdWriter
}

func (s ZstdSink) WritePacket(_ context.Context, p sim.HistoryPacket) error {
	records := make([]trace.Record, len(p.Elements))
	for i, e := range p.Elements {
		records[i] = trace.Record{
			Seed:     p.Seed,
			Step:     e.Step,
			Time:     e.Time,
			Reaction: e.Reaction,
			Site1:    e.Sites[0],
			Site2:    e.Sites[1],
		}
	}
	return s.W.Append(p.Seed, records)
}

func (s ZstdSink) ReadTrajectory(_ context.Context, seed int64) ([]sim.TrajectoryElement, error) {
	records, err := s.W.Read(seed)
	if err != nil {
		return nil, err
	}
	out := make([]sim.TrajectoryElement, len(records))
	for i, r := range records {
		out[i] = sim.TrajectoryElement{
			Step:     r.Step,
			Time:     r.Time,
			Reaction: r.Reaction,
			Sites:    [sim.MaxReactionSites]int{r.Site1, r.Site2},
		}
	}
	return out, nil
}

func (s ZstdSink) TruncateTrajectory(_ context.Context, seed int64, step int) error {
	return s.W.Truncate(seed, step)
}
