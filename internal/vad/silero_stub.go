//go:build !cgo

package vad

import "fmt"

func newSilero(cfg Config) (Classifier, error) {
	return nil, fmt.Errorf("silero: requires cgo (onnxruntime)")
}
