// Package audio handles audio device capture and window assembly
package audio

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Chunk is one capture callback's worth of mono samples.
type Chunk struct {
	Data      []float32
	Timestamp int64
}

// Queue is the bounded handoff between the capture callback and the
// session loop. Push never blocks: when the consumer stalls and the
// queue fills up, the newest chunk is dropped and counted.
type Queue struct {
	ch      chan Chunk
	dropped atomic.Uint64
	onPush  func()
	onDrop  func()
}

// NewQueue creates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{ch: make(chan Chunk, capacity)}
}

// OnPush registers a callback invoked for each enqueued chunk (for metrics).
func (q *Queue) OnPush(fn func()) { q.onPush = fn }

// OnDrop registers a callback invoked for each dropped chunk (for metrics).
func (q *Queue) OnDrop(fn func()) { q.onDrop = fn }

// Push enqueues a chunk without blocking. Runs on the capture callback
// path, so it must never wait on the consumer.
func (q *Queue) Push(c Chunk) {
	select {
	case q.ch <- c:
		if q.onPush != nil {
			q.onPush()
		}
	default:
		n := q.dropped.Add(1)
		if q.onDrop != nil {
			q.onDrop()
		}
		if n%100 == 1 {
			slog.Warn("chunk queue full, dropping newest", "dropped_total", n)
		}
	}
}

// Pop waits up to timeout for a chunk. The second return is false when
// the timeout expired with nothing available.
func (q *Queue) Pop(timeout time.Duration) (Chunk, bool) {
	select {
	case c := <-q.ch:
		return c, true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case c := <-q.ch:
		return c, true
	case <-timer.C:
		return Chunk{}, false
	}
}

// Len returns the number of chunks currently buffered.
func (q *Queue) Len() int { return len(q.ch) }

// Dropped returns the total number of chunks dropped on overflow.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }
