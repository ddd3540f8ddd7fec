package vad

import "math"

// Default energy classifier tuning. The threshold is RMS level on
// normalized [-1, 1] samples; the sub-window matches the 512-sample
// granularity silero uses at 16 kHz.
const (
	DefaultEnergyThreshold = 0.015
	DefaultSubWindow       = 512
)

// Energy is a pure-Go classifier based on per-sub-window RMS level.
// It is deterministic and keeps no state between calls, so one instance
// can serve any number of sessions.
type Energy struct {
	threshold float32
	window    int
}

// NewEnergy creates an energy classifier. Zero values select defaults.
func NewEnergy(threshold float32, window int) *Energy {
	if threshold <= 0 {
		threshold = DefaultEnergyThreshold
	}
	if window <= 0 {
		window = DefaultSubWindow
	}
	return &Energy{threshold: threshold, window: window}
}

// Classify scans the window in fixed sub-windows and merges consecutive
// speech sub-windows into intervals. A trailing partial sub-window is
// classified like any other.
func (e *Energy) Classify(window []float32, sampleRate int) ([]Interval, error) {
	var intervals []Interval
	var current *Interval

	for start := 0; start < len(window); start += e.window {
		end := start + e.window
		if end > len(window) {
			end = len(window)
		}

		if rms(window[start:end]) >= float64(e.threshold) {
			if current == nil {
				intervals = append(intervals, Interval{Start: start, End: end})
				current = &intervals[len(intervals)-1]
			} else {
				current.End = end
			}
		} else {
			current = nil
		}
	}
	return intervals, nil
}

// rms computes the root-mean-square of normalized samples.
func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
