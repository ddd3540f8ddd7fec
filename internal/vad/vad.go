// Package vad provides the speech/no-speech classifier capability.
package vad

import (
	"fmt"
	"log/slog"
	"os"
)

// Interval is a detected speech span within one analysis window,
// expressed in sample offsets relative to the window start.
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Classifier maps an analysis window to an ordered list of speech
// intervals. An empty result means the window is silent. Windows may be
// shorter than usual (partial collection); implementations must accept
// any length. A single Classifier instance may be shared across
// sessions, so implementations must be safe for concurrent use.
type Classifier interface {
	Classify(window []float32, sampleRate int) ([]Interval, error)
}

// Config selects and tunes a classifier implementation.
type Config struct {
	Backend   string  // "auto", "energy" or "silero"
	ModelPath string  // silero: path to the ONNX model
	Threshold float32 // speech probability / energy threshold
	Window    int     // sub-window size in samples
}

// New builds the configured classifier. "auto" tries silero and falls
// back to the energy classifier when the model is unavailable.
func New(cfg Config) (Classifier, error) {
	switch cfg.Backend {
	case "energy":
		return NewEnergy(cfg.Threshold, cfg.Window), nil
	case "silero":
		return newSilero(cfg)
	case "", "auto":
		if cfg.ModelPath != "" {
			if _, err := os.Stat(cfg.ModelPath); err == nil {
				c, err := newSilero(cfg)
				if err == nil {
					return c, nil
				}
				slog.Warn("silero classifier unavailable, using energy", "error", err)
			}
		}
		// The configured threshold is a silero speech probability, not
		// an RMS level; the fallback keeps its own default.
		return NewEnergy(0, cfg.Window), nil
	default:
		return nil, fmt.Errorf("unknown vad backend %q", cfg.Backend)
	}
}
