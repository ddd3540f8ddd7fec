//go:build cgo

package vad

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Silero runs the Silero VAD ONNX model. The model consumes 512-sample
// sub-windows at 16 kHz and carries a recurrent hidden state, which is
// zeroed at the start of every Classify call so results depend only on
// the window itself.
type Silero struct {
	mu        sync.Mutex
	session   *ort.DynamicAdvancedSession
	state     *ort.Tensor[float32] // hidden state [2, 1, 64]
	threshold float32
	window    int
}

func newSilero(cfg Config) (Classifier, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("silero: model path not configured")
	}

	if err := ort.InitializeEnvironment(); err != nil {
		if err.Error() != "the ONNX runtime is already initialized" {
			return nil, fmt.Errorf("silero: initialize onnx runtime: %w", err)
		}
	}

	stateData := make([]float32, 2*1*64)
	state, err := ort.NewTensor(ort.NewShape(2, 1, 64), stateData)
	if err != nil {
		return nil, fmt.Errorf("silero: create state tensor: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{"input", "state", "sr"},
		[]string{"output", "stateN"},
		nil,
	)
	if err != nil {
		state.Destroy()
		return nil, fmt.Errorf("silero: create session: %w", err)
	}

	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = 0.5
	}
	window := cfg.Window
	if window <= 0 {
		window = DefaultSubWindow
	}
	return &Silero{session: session, state: state, threshold: threshold, window: window}, nil
}

// Classify runs inference per sub-window and merges consecutive speech
// sub-windows into intervals.
func (s *Silero) Classify(window []float32, sampleRate int) ([]Interval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.GetData() {
		s.state.GetData()[i] = 0
	}

	var intervals []Interval
	var current *Interval

	for start := 0; start < len(window); start += s.window {
		end := start + s.window
		if end > len(window) {
			end = len(window)
		}

		prob, err := s.infer(window[start:end], sampleRate)
		if err != nil {
			return nil, err
		}

		if prob >= s.threshold {
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

func (s *Silero) infer(samples []float32, sampleRate int) (float32, error) {
	input := append([]float32(nil), samples...)
	inputTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(input))), input)
	if err != nil {
		return 0, fmt.Errorf("silero: input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	srTensor, err := ort.NewTensor(ort.NewShape(1), []int64{int64(sampleRate)})
	if err != nil {
		return 0, fmt.Errorf("silero: sr tensor: %w", err)
	}
	defer srTensor.Destroy()

	outputTensor, err := ort.NewTensor(ort.NewShape(1, 1), make([]float32, 1))
	if err != nil {
		return 0, fmt.Errorf("silero: output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	newState, err := ort.NewTensor(ort.NewShape(2, 1, 64), make([]float32, 2*1*64))
	if err != nil {
		return 0, fmt.Errorf("silero: state tensor: %w", err)
	}
	defer newState.Destroy()

	inputs := []ort.Value{inputTensor, s.state, srTensor}
	outputs := []ort.Value{outputTensor, newState}
	if err := s.session.Run(inputs, outputs); err != nil {
		return 0, fmt.Errorf("silero: inference: %w", err)
	}

	copy(s.state.GetData(), newState.GetData())
	return outputTensor.GetData()[0], nil
}

// Close releases the session and state tensor.
func (s *Silero) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Destroy()
	return s.session.Destroy()
}
