// Package sim provides the lattice kinetic Monte Carlo engine.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - network.go: ReactionNetwork construction from persisted records
//   - dependency.go: which propensities an event can change (species and site layers)
//   - simulator.go: the Gillespie event loop, incremental propensity updates, cutoffs
//
// # Architecture
//
// The sim package holds the model types and the per-replica kernel; the
// surrounding plumbing lives in sub-packages:
//   - sim/store/: sqlite model, state, cutoff and trajectory persistence
//   - sim/dispatch/: replica pool, history consumer, run metrics
//   - sim/trace/: zstd-compressed JSONL trajectories and run summaries
//
// # Key Interfaces
//
// The extension points are small interfaces:
//   - ModelStore: supplies species, reactions, initial state and factors
//   - CheckpointStore: persists the (seed, step, time) cutoff of each replica
//
// Replicas never share mutable state. The only shared structure is the
// HistoryQueue, which carries filled trajectory chunks to a single consumer.
package sim
