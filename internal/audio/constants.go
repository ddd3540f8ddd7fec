// Package audio handles audio device capture and window assembly
package audio

import "time"

// Capture and windowing constants
const (
	// Default queue depth between the capture callback and the consumer
	DefaultQueueCapacity = 256

	// Per-chunk wait while assembling a window
	DefaultCollectTimeout = time.Second

	// Samples delivered per capture callback
	DefaultChunkSize = 64

	// Chunks concatenated into one analysis window
	DefaultBatchSize = 100
)
