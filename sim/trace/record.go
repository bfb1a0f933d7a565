// Package trace stores replica trajectories as zstd-compressed JSON lines and
// summarizes finished runs. It has no dependencies on sim/ and stores pure
// data types; callers convert.
package trace

// Record is one fired event of one replica. Unused site slots hold -1.
type Record struct {
	Seed     int64   `json:"seed"`
	Step     int     `json:"step"`
	Time     float64 `json:"time"`
	Reaction int     `json:"reaction_id"`
	Site1    int     `json:"site_1"`
	Site2    int     `json:"site_2"`
}

// ReplicaRecord is the outcome of one replica.
type ReplicaRecord struct {
	Seed    int64
	Steps   int
	Time    float64
	Reason  string // "step_cutoff", "time_cutoff", "quiescent"
	Clamped int    // propensities clamped to zero
	Resumed bool
	Sites   int // lattice size at termination
}
