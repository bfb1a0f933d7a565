package sim

import (
	"context"
	"fmt"
	"sync"
)

// TrajectoryElement is one fired event of a replica.
// Sites holds NoSite in unused slots.
type TrajectoryElement struct {
	Step     int
	Time     float64
	Reaction int
	Sites    [MaxReactionSites]int
}

// HistoryPacket is a filled chunk of one replica's trajectory. Once pushed,
// the consumer owns Elements; the producer never touches them again.
type HistoryPacket struct {
	Seed     int64
	Elements []TrajectoryElement
}

// HistoryQueue is the one structure shared by all replicas: producers push
// packets, a single consumer drains Packets() until it is closed.
type HistoryQueue struct {
	mu     sync.RWMutex
	closed bool
	ch     chan HistoryPacket
}

// NewHistoryQueue creates a queue buffering up to capacity packets before
// Push blocks.
func NewHistoryQueue(capacity int) *HistoryQueue {
	if capacity < 0 {
		capacity = 0
	}
	return &HistoryQueue{ch: make(chan HistoryPacket, capacity)}
}

// Push hands a packet to the consumer, blocking while the queue is full.
// Safe for concurrent use.
func (q *HistoryQueue) Push(ctx context.Context, p HistoryPacket) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrHistoryQueueClosed
	}
	select {
	case q.ch <- p:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pushing history for seed %d: %w", p.Seed, ctx.Err())
	}
}

// Packets returns the receive side. It is closed by Close.
func (q *HistoryQueue) Packets() <-chan HistoryPacket {
	return q.ch
}

// Close stops accepting packets. It waits for in-flight pushes, so the
// consumer must keep draining until Packets() is closed.
func (q *HistoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// TrajectoryHistory buffers one replica's trajectory and hands full chunks
// to a HistoryQueue. It is owned by a single simulation.
type TrajectoryHistory struct {
	seed      int64
	chunkSize int
	queue     *HistoryQueue
	buf       []TrajectoryElement
	pushed    int
}

// NewTrajectoryHistory creates a history for one replica. A nil queue
// discards chunks, which is useful when only the final state matters.
func NewTrajectoryHistory(seed int64, chunkSize int, queue *HistoryQueue) *TrajectoryHistory {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	return &TrajectoryHistory{
		seed:      seed,
		chunkSize: chunkSize,
		queue:     queue,
		buf:       make([]TrajectoryElement, 0, chunkSize),
	}
}

// Append records one element, handing off the chunk when it becomes full.
func (h *TrajectoryHistory) Append(ctx context.Context, e TrajectoryElement) error {
	h.buf = append(h.buf, e)
	if len(h.buf) < h.chunkSize {
		return nil
	}
	return h.handoff(ctx)
}

// Flush hands off the partial chunk, if any.
func (h *TrajectoryHistory) Flush(ctx context.Context) error {
	if len(h.buf) == 0 {
		return nil
	}
	return h.handoff(ctx)
}

func (h *TrajectoryHistory) handoff(ctx context.Context) error {
	chunk := h.buf
	h.buf = make([]TrajectoryElement, 0, h.chunkSize)
	if h.queue == nil {
		return nil
	}
	if err := h.queue.Push(ctx, HistoryPacket{Seed: h.seed, Elements: chunk}); err != nil {
		return err
	}
	h.pushed += len(chunk)
	return nil
}

// Buffered returns the number of elements not yet handed off.
func (h *TrajectoryHistory) Buffered() int { return len(h.buf) }

// Pushed returns the number of elements handed to the queue so far.
func (h *TrajectoryHistory) Pushed() int { return h.pushed }
