// Package dispatch runs many replicas of one reaction network in parallel,
// each with its own seed, and drains their trajectories to a single sink.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/lattice-sim/lattice-sim/sim"
	"github.com/lattice-sim/lattice-sim/sim/trace"
)

// Config controls a dispatch run. Replicas use seeds BaseSeed … BaseSeed+Replicas-1.
type Config struct {
	BaseSeed           int64
	Replicas           int
	Threads            int
	StepCutoff         int
	TimeCutoff         float64
	HistoryChunkSize   int
	CheckpointInterval int
	ResumInterval      int
	QueueCapacity      int
	MetricsFile        string
}

// ConfigFromRun maps the file-level run configuration onto a dispatch Config.
func ConfigFromRun(rc *sim.RunConfig) Config {
	return Config{
		BaseSeed:           rc.BaseSeed,
		Replicas:           rc.NumberOfSimulations,
		Threads:            rc.Threads,
		StepCutoff:         rc.StepCutoff,
		TimeCutoff:         rc.TimeCutoff,
		HistoryChunkSize:   rc.HistoryChunkSize,
		CheckpointInterval: rc.CheckpointInterval,
		ResumInterval:      10000,
		QueueCapacity:      rc.QueueCapacity,
		MetricsFile:        rc.MetricsFile,
	}
}

// Dispatcher owns the history queue and its consumer for one run.
type Dispatcher struct {
	net         *sim.ReactionNetwork
	checkpoints sim.CheckpointStore
	sink        TrajectorySink
	cfg         Config
	metrics     *Metrics
}

// New creates a dispatcher. checkpoints and sink may be nil, in which case
// nothing is persisted and every seed starts from scratch.
func New(net *sim.ReactionNetwork, checkpoints sim.CheckpointStore, sink TrajectorySink, cfg Config) *Dispatcher {
	if cfg.Threads <= 0 {
		cfg.Threads = 1
	}
	return &Dispatcher{
		net:         net,
		checkpoints: checkpoints,
		sink:        sink,
		cfg:         cfg,
		metrics:     newMetrics(),
	}
}

// Metrics returns the run's collectors.
func (d *Dispatcher) Metrics() *Metrics { return d.metrics }

// Run executes every replica and returns their outcomes in seed order.
// The first replica error cancels the others.
func (d *Dispatcher) Run(ctx context.Context) ([]trace.ReplicaRecord, error) {
	if d.cfg.Replicas <= 0 {
		return nil, fmt.Errorf("number of replicas must be positive, got %d", d.cfg.Replicas)
	}
	cutoffs := map[int64]sim.Cutoff{}
	if d.checkpoints != nil {
		var err error
		if cutoffs, err = d.checkpoints.ReadCutoffs(ctx); err != nil {
			return nil, err
		}
	}

	queue := sim.NewHistoryQueue(d.cfg.QueueCapacity)
	var (
		wg          sync.WaitGroup
		consumerErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		consumerErr = d.consume(ctx, queue)
	}()

	logrus.Infof("Dispatching %d replicas (seeds %d-%d) on %d threads",
		d.cfg.Replicas, d.cfg.BaseSeed, d.cfg.BaseSeed+int64(d.cfg.Replicas)-1, d.cfg.Threads)

	records := make([]trace.ReplicaRecord, d.cfg.Replicas)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Threads)
	for i := 0; i < d.cfg.Replicas; i++ {
		i := i
		seed :=d.cfg.BaseSeed + int64(i)
		cutoff, ok := cutoffs[seed]
		g.Go(func() error {
			var prev *sim.Cutoff
			if ok {
				prev = &cutoff
			}
			rec, err := d.runReplica(gctx, seed, prev, queue)
			if err != nil {
				return fmt.Errorf("replica %d: %w", seed, err)
			}
			records[i] = rec
			return nil
		})
	}
	runErr := g.Wait()
	queue.Close()
	wg.Wait()

	if err := errors.Join(runErr, consumerErr); err != nil {
		return nil, err
	}
	if d.cfg.MetricsFile != "" {
		if err := d.metrics.WriteTextfile(d.cfg.MetricsFile); err != nil {
			return records, fmt.Errorf("writing metrics: %w", err)
		}
	}
	return records, nil
}

// consume drains the queue until it is closed. After a sink failure it keeps
// draining so producers never block, and reports the first error.
func (d *Dispatcher) consume(ctx context.Context, queue *sim.HistoryQueue) error {
	var firstErr error
	for p := range queue.Packets() {
		if firstErr != nil || d.sink == nil {
			continue
		}
		if err := d.sink.WritePacket(ctx, p); err != nil {
			firstErr = fmt.Errorf("writing history of seed %d: %w", p.Seed, err)
			logrus.Errorf("Trajectory sink failed: %v", err)
			continue
		}
		d.metrics.packets.Inc()
		d.metrics.elements.Add(float64(len(p.Elements)))
	}
	return firstErr
}

func (d *Dispatcher) runReplica(ctx context.Context, seed int64, prev *sim.Cutoff, queue *sim.HistoryQueue) (trace.ReplicaRecord, error) {
	if prev != nil {
		if reason := d.finished(*prev); reason != sim.ReasonNone {
			logrus.WithFields(logrus.Fields{"seed": seed, "step": prev.Step}).Info("Replica already finished, skipping")
			return trace.ReplicaRecord{Seed: seed, Steps: prev.Step, Time: prev.Time, Reason: string(reason)}, nil
		}
	}

	state := d.net.NewState()
	var resume *sim.Cutoff
	if prev != nil {
		var err error
		if resume, err = d.restore(ctx, seed, *prev, &state); err != nil {
			return trace.ReplicaRecord{}, err
		}
	}

	s, err := sim.NewSimulator(d.net, &state, queue, sim.SimulationConfig{
		Seed:               seed,
		Resume:             resume,
		StepCutoff:         d.cfg.StepCutoff,
		TimeCutoff:         d.cfg.TimeCutoff,
		HistoryChunkSize:   d.cfg.HistoryChunkSize,
		CheckpointInterval: d.cfg.CheckpointInterval,
		ResumInterval:      d.cfg.ResumInterval,
		Checkpoints:        d.checkpoints,
	})
	if err != nil {
		return trace.ReplicaRecord{}, err
	}
	start := 0
	if resume != nil {
		start = resume.Step
	}
	if err := s.Run(ctx); err != nil {
		return trace.ReplicaRecord{}, err
	}

	c := s.Cutoff()
	rec := trace.ReplicaRecord{
		Seed:    seed,
		Steps:   c.Step,
		Time:    c.Time,
		Reason:  string(s.Reason()),
		Clamped: s.ClampedPropensities(),
		Resumed: resume != nil,
	}
	if l := s.State().Lattice; l != nil {
		rec.Sites = l.Len()
	}
	d.metrics.replicas.WithLabelValues(rec.Reason).Inc()
	d.metrics.events.Add(float64(c.Step - start))
	d.metrics.clamped.Add(float64(rec.Clamped))
	d.metrics.simulatedTime.Observe(c.Time)
	if rec.Resumed {
		d.metrics.resumed.Inc()
	}
	return rec, nil
}

// finished reports whether a stored cutoff already satisfies the run's
// step or time cutoff.
func (d *Dispatcher) finished(c sim.Cutoff) sim.TerminationReason {
	if d.cfg.StepCutoff > 0 && c.Step >= d.cfg.StepCutoff {
		return sim.ReasonStepCutoff
	}
	if d.cfg.TimeCutoff > 0 && c.Time >= d.cfg.TimeCutoff {
		return sim.ReasonTimeCutoff
	}
	return sim.ReasonNone
}

// restore rebuilds the state of seed at the longest gap-free stored prefix
// that does not pass the cutoff, and drops everything stored after it. A
// nil result means the replica starts over.
func (d *Dispatcher) restore(ctx context.Context, seed int64, c sim.Cutoff, state *sim.LatticeState) (*sim.Cutoff, error) {
	if d.sink == nil {
		return nil, nil
	}
	elements, err := d.sink.ReadTrajectory(ctx, seed)
	if err != nil {
		return nil, err
	}
	n := 0
	for n < len(elements) && elements[n].Step == n+1 && elements[n].Step <= c.Step {
		n++
	}
	if err := d.sink.TruncateTrajectory(ctx, seed, n); err != nil {
		return nil, err
	}
	if n == 0 {
		logrus.WithFields(logrus.Fields{"seed": seed}).Warn("No stored trajectory to resume from, restarting")
		return nil, nil
	}
	if n < c.Step {
		logrus.WithFields(logrus.Fields{"seed": seed, "cutoff": c.Step, "stored": n}).
			Warn("Stored trajectory ends before the cutoff, resuming from its end")
	}
	if err := d.net.Replay(state, elements[:n]); err != nil {
		return nil, fmt.Errorf("restoring seed %d: %w", seed, err)
	}
	last := elements[n-1]
	return &sim.Cutoff{Seed: seed, Step: last.Step, Time: last.Time}, nil
}
