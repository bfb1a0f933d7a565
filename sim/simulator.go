// sim/simulator.go
package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// Status is the state of a Simulator's event loop.
type Status int

const (
	Running Status = iota
	Terminated
)

func (s Status) String() string {
	if s == Terminated {
		return "terminated"
	}
	return "running"
}

// TerminationReason tells why a replica stopped.
type TerminationReason string

const (
	ReasonNone       TerminationReason = ""
	ReasonStepCutoff TerminationReason = "step_cutoff"
	ReasonTimeCutoff TerminationReason = "time_cutoff"
	ReasonQuiescent  TerminationReason = "quiescent"
)

// Observer receives every applied event together with the state right after
// it. It must not retain or mutate the state.
type Observer func(e TrajectoryElement, state *LatticeState)

// SimulationConfig holds the per-replica knobs. Zero cutoffs mean no limit.
type SimulationConfig struct {
	Seed int64
	// Resume, when set, starts the clock at the given cutoff. The state passed
	// to NewSimulator must be the state at that cutoff.
	Resume             *Cutoff
	StepCutoff         int
	TimeCutoff         float64
	HistoryChunkSize   int
	CheckpointInterval int // steps between cutoff writes; 0 writes only at termination
	ResumInterval      int // steps between full resummations of the total propensity
	Checkpoints        CheckpointStore
	Observer           Observer
}

// Simulator runs one replica. It exclusively owns its state, propensities and
// history buffer; nothing in it is safe for concurrent use.
type Simulator struct {
	net   *ReactionNetwork
	cfg   SimulationConfig
	state LatticeState
	elig  *eligibility

	propensities []float64
	total        float64

	step int
	time float64

	status  Status
	reason  TerminationReason
	clamped int
	grown   bool

	rng     *PartitionedRNG
	history *TrajectoryHistory

	changes []siteChange
	stamp   []int
	dirty   []int
}

// NewSimulator creates a replica. The state is moved into the simulator:
// after the call the caller's LatticeState is empty.
func NewSimulator(net *ReactionNetwork, state *LatticeState, queue *HistoryQueue, cfg SimulationConfig) (*Simulator, error) {
	if net == nil || state == nil {
		return nil, fmt.Errorf("simulator needs a network and a state")
	}
	if len(state.Counts) != len(net.Species) {
		return nil, fmt.Errorf("state has %d species counts, network has %d species", len(state.Counts), len(net.Species))
	}
	if needsLattice(net.Species, net.Reactions) && state.Lattice == nil {
		return nil, fmt.Errorf("state has no lattice but the network acts on sites")
	}
	sim := &Simulator{
		net:          net,
		cfg:          cfg,
		state:        state.Take(),
		propensities: make([]float64, len(net.Reactions)),
		stamp:        make([]int, len(net.Reactions)),
		history:      NewTrajectoryHistory(cfg.Seed, cfg.HistoryChunkSize, queue),
	}
	key := NewSimulationKey(cfg.Seed)
	if cfg.Resume != nil {
		sim.step = cfg.Resume.Step
		sim.time = cfg.Resume.Time
		// A resumed replica must not replay the random stream of its first leg.
		key = NewSimulationKey(cfg.Seed ^ fnv1a64(fmt.Sprintf("resume_%d", cfg.Resume.Step)))
	}
	sim.rng = NewPartitionedRNG(key)
	for i := range sim.stamp {
		sim.stamp[i] = -1
	}

	sim.elig = newEligibility(net.Reactions, sim.state.Lattice)
	for i := range net.Reactions {
		sim.propensities[i] = sim.evaluate(i)
	}
	sim.resum()
	return sim, nil
}

// evaluate computes the propensity of reaction i, clamping and counting
// invalid values.
func (sim *Simulator) evaluate(i int) float64 {
	p, clamped := propensity(&sim.net.Reactions[i], sim.net.Factors, sim.state.Counts, sim.elig.count(i))
	if clamped {
		sim.clamped++
		logrus.WithFields(logrus.Fields{"seed": sim.cfg.Seed, "step": sim.step, "reaction": i}).
			Warn("Clamped invalid propensity to zero")
	}
	return p
}

func (sim *Simulator) resum() {
	sim.total = floats.Sum(sim.propensities)
}

// Status returns Running or Terminated.
func (sim *Simulator) Status() Status { return sim.status }

// Reason returns why the replica terminated, or ReasonNone while running.
func (sim *Simulator) Reason() TerminationReason { return sim.reason }

// Cutoff returns the replica's current (seed, step, time).
func (sim *Simulator) Cutoff() Cutoff {
	return Cutoff{Seed: sim.cfg.Seed, Step: sim.step, Time: sim.time}
}

// State exposes the replica's state for inspection. Callers must not mutate it.
func (sim *Simulator) State() *LatticeState { return &sim.state }

// Propensities returns the current propensity vector. Callers must not mutate it.
func (sim *Simulator) Propensities() []float64 { return sim.propensities }

// TotalPropensity returns the running sum of all propensities.
func (sim *Simulator) TotalPropensity() float64 { return sim.total }

// ClampedPropensities returns how many propensity evaluations had to be
// clamped to zero.
func (sim *Simulator) ClampedPropensities() int { return sim.clamped }

// Run steps until the replica terminates, an event fails, or ctx is done.
// Cancellation is only observed between events.
func (sim *Simulator) Run(ctx context.Context) error {
	logrus.WithFields(logrus.Fields{"seed": sim.cfg.Seed, "step": sim.step, "time": sim.time}).Info("Replica started")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		more, err := sim.Step(ctx)
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	logrus.WithFields(logrus.Fields{
		"seed":    sim.cfg.Seed,
		"step":    sim.step,
		"time":    sim.time,
		"reason":  sim.reason,
		"clamped": sim.clamped,
	}).Info("Replica terminated")
	return nil
}

// Step fires one event. It reports false once the replica has terminated.
func (sim *Simulator) Step(ctx context.Context) (bool, error) {
	if sim.status == Terminated {
		return false, nil
	}
	if sim.cfg.StepCutoff > 0 && sim.step >= sim.cfg.StepCutoff {
		return false, sim.terminate(ctx, ReasonStepCutoff)
	}
	if sim.cfg.TimeCutoff > 0 && sim.time >= sim.cfg.TimeCutoff {
		return false, sim.terminate(ctx, ReasonTimeCutoff)
	}
	if math.IsInf(sim.total, 0) || math.IsNaN(sim.total) {
		if err := sim.recoverTotal(); err != nil {
			return false, err
		}
	}
	if sim.total <= 0 {
		sim.resum()
		if sim.total <= 0 {
			return false, sim.terminate(ctx, ReasonQuiescent)
		}
	}

	events := sim.rng.ForSubsystem(SubsystemEvents)
	dt := -math.Log(1-events.Float64()) / sim.total
	idx := sim.selectReaction(events.Float64() * sim.total)
	if idx < 0 {
		// Only rounding drift can leave a positive total over all-zero propensities.
		sim.resum()
		return false, sim.terminate(ctx, ReasonQuiescent)
	}
	r := &sim.net.Reactions[idx]

	sites := [MaxReactionSites]int{NoSite, NoSite}
	if r.IsLattice() {
		n := sim.elig.count(idx)
		if n == 0 {
			return false, fmt.Errorf("seed %d step %d: reaction %d selected with no eligible sites", sim.cfg.Seed, sim.step, idx)
		}
		sites = sim.elig.pick(r, sim.state.Lattice, sim.rng.ForSubsystem(SubsystemSites).Intn(n))
	}

	var err error
	sim.changes, err = sim.state.apply(r, sites, sim.changes[:0])
	if err != nil {
		return false, fmt.Errorf("seed %d step %d: %w", sim.cfg.Seed, sim.step, err)
	}
	sim.time += dt
	sim.step++
	sim.update(r)

	e := TrajectoryElement{Step: sim.step, Time: sim.time, Reaction: idx, Sites: sites}
	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		logrus.WithFields(logrus.Fields{"seed": sim.cfg.Seed}).
			Debugf("[step %09d] t=%.6e reaction %d sites %v", e.Step, e.Time, e.Reaction, e.Sites)
	}
	if err := sim.history.Append(ctx, e); err != nil {
		return false, err
	}
	if sim.cfg.Observer != nil {
		sim.cfg.Observer(e, &sim.state)
	}
	if sim.cfg.CheckpointInterval > 0 && sim.step%sim.cfg.CheckpointInterval == 0 {
		if err := sim.checkpoint(ctx); err != nil {
			return false, err
		}
	}
	if sim.cfg.ResumInterval > 0 && sim.step%sim.cfg.ResumInterval == 0 {
		sim.resum()
	}
	return true, nil
}

// recoverTotal re-sums a running total that left the finite range. An
// infinite propensity, or a sum that still overflows, is fatal for the replica.
func (sim *Simulator) recoverTotal() error {
	sim.resum()
	for i, p := range sim.propensities {
		if math.IsInf(p, 0) {
			return fmt.Errorf("seed %d step %d: %w: reaction %d", sim.cfg.Seed, sim.step, ErrPropensityOverflow, i)
		}
	}
	if math.IsInf(sim.total, 0) || math.IsNaN(sim.total) {
		return fmt.Errorf("seed %d step %d: %w: total %v", sim.cfg.Seed, sim.step, ErrPropensityOverflow, sim.total)
	}
	return nil
}

// selectReaction returns the reaction whose cumulative propensity interval
// contains target, scanning in id order. Zero propensities are never chosen;
// a target past the last interval falls back to the last positive reaction.
func (sim *Simulator) selectReaction(target float64) int {
	last := -1
	cum := 0.0
	for i, p := range sim.propensities {
		if p <= 0 {
			continue
		}
		cum += p
		last = i
		if target < cum {
			return i
		}
	}
	return last
}

// update refreshes the eligibility sets touched by the last event and then
// recomputes the propensity of the fired reaction, its dependents and every
// lattice reaction whose eligibility may have changed.
func (sim *Simulator) update(r *Reaction) {
	sim.dirty = sim.dirty[:0]
	mark := func(id int) {
		if sim.stamp[id] != sim.step {
			sim.stamp[id] = sim.step
			sim.dirty = append(sim.dirty, id)
		}
	}
	mark(r.ID)
	for _, id := range sim.net.Dependents.Dependents(r.ID) {
		mark(id)
	}

	g := sim.net.Dependents
	l := sim.state.Lattice
	for _, c := range sim.changes {
		if c.Before == newSite {
			sim.onGrow(c.Site)
			for _, id := range g.SiteDependents(EmptySite) {
				sim.elig.touch(&sim.net.Reactions[id], l, c.Site)
				mark(id)
			}
			continue
		}
		for _, occ := range [2]int{c.Before, c.After} {
			for _, id := range g.SiteDependents(occ) {
				sim.elig.touch(&sim.net.Reactions[id], l, c.Site)
				mark(id)
			}
		}
	}

	for _, id := range sim.dirty {
		p := sim.evaluate(id)
		sim.total += p - sim.propensities[id]
		sim.propensities[id] = p
	}
	if sim.total < 0 {
		sim.resum()
	}
}

func (sim *Simulator) onGrow(site int) {
	if sim.grown {
		return
	}
	sim.grown = true
	logrus.WithFields(logrus.Fields{"seed": sim.cfg.Seed, "step": sim.step, "site": site}).
		Warn("Lattice grew beyond its initial box")
}

func (sim *Simulator) checkpoint(ctx context.Context) error {
	if err := sim.history.Flush(ctx); err != nil {
		return err
	}
	if sim.cfg.Checkpoints == nil {
		return nil
	}
	if err := sim.cfg.Checkpoints.WriteCutoff(ctx, sim.Cutoff()); err != nil {
		return fmt.Errorf("writing cutoff for seed %d: %w", sim.cfg.Seed, err)
	}
	return nil
}

// terminate flushes the final partial chunk and persists the final cutoff.
func (sim *Simulator) terminate(ctx context.Context, reason TerminationReason) error {
	sim.status = Terminated
	sim.reason = reason
	return sim.checkpoint(ctx)
}
