package sim

import "context"

// Cutoff marks how far a replica has progressed: the state after Step events
// at simulated time Time.
type Cutoff struct {
	Seed int64
	Step int
	Time float64
}

// CheckpointStore persists cutoffs. Implementations must accept concurrent
// writes from many replicas; WriteCutoff replaces any earlier cutoff of the
// same seed.
type CheckpointStore interface {
	ReadCutoffs(ctx context.Context) (map[int64]Cutoff, error)
	WriteCutoff(ctx context.Context, c Cutoff) error
}
