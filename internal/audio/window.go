// Package audio handles audio device capture and window assembly
package audio

import (
	"context"
	"time"
)

// Aggregator assembles analysis windows from queued chunks.
type Aggregator struct {
	queue   *Queue
	target  int
	timeout time.Duration
}

// NewAggregator creates an aggregator that concatenates target chunks
// per window, waiting at most timeout for each chunk.
func NewAggregator(queue *Queue, target int, timeout time.Duration) *Aggregator {
	if target <= 0 {
		target = DefaultBatchSize
	}
	if timeout <= 0 {
		timeout = DefaultCollectTimeout
	}
	return &Aggregator{queue: queue, target: target, timeout: timeout}
}

// Collect pops chunks until target chunks are gathered or a per-chunk
// wait times out, then returns the concatenation in arrival order along
// with the number of chunks gathered. A timeout with partial data still
// yields a (short) window; a zero count means nothing at all arrived.
// Cancelling ctx aborts the wait and returns whatever was gathered.
func (a *Aggregator) Collect(ctx context.Context) ([]float32, int) {
	var window []float32
	gathered := 0

	for gathered < a.target {
		if ctx.Err() != nil {
			break
		}
		chunk, ok := a.queue.Pop(a.timeout)
		if !ok {
			break
		}
		window = append(window, chunk.Data...)
		gathered++
	}

	if gathered == 0 {
		return nil, 0
	}
	return window, gathered
}

// Target returns the number of chunks in a full window.
func (a *Aggregator) Target() int { return a.target }
