package vad

import (
	"math"
	"testing"
)

// tone fills n samples with a sine wave of the given amplitude.
func tone(n int, amplitude float64) []float32 {
	w := make([]float32, n)
	for i := range w {
		w[i] = float32(amplitude * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	return w
}

func TestEnergySilenceYieldsNoIntervals(t *testing.T) {
	e := NewEnergy(0, 0)
	intervals, err := e.Classify(make([]float32, 2048), 16000)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if len(intervals) != 0 {
		t.Errorf("intervals = %v, want none", intervals)
	}
}

func TestEnergyDetectsTone(t *testing.T) {
	e := NewEnergy(0, 0)
	intervals, err := e.Classify(tone(2048, 0.5), 16000)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if len(intervals) != 1 {
		t.Fatalf("intervals = %v, want one merged interval", intervals)
	}
	if intervals[0].Start != 0 || intervals[0].End != 2048 {
		t.Errorf("interval = %+v, want [0, 2048)", intervals[0])
	}
}

func TestEnergyMergesOnlyConsecutiveSubWindows(t *testing.T) {
	e := NewEnergy(0.015, 512)

	// speech, silence, speech: two separate intervals.
	window := make([]float32, 0, 1536)
	window = append(window, tone(512, 0.5)...)
	window = append(window, make([]float32, 512)...)
	window = append(window, tone(512, 0.5)...)

	intervals, err := e.Classify(window, 16000)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if len(intervals) != 2 {
		t.Fatalf("intervals = %v, want two", intervals)
	}
	if intervals[0].Start != 0 || intervals[0].End != 512 {
		t.Errorf("first interval = %+v, want [0, 512)", intervals[0])
	}
	if intervals[1].Start != 1024 || intervals[1].End != 1536 {
		t.Errorf("second interval = %+v, want [1024, 1536)", intervals[1])
	}
}

func TestEnergyHandlesTrailingPartialSubWindow(t *testing.T) {
	e := NewEnergy(0.015, 512)
	intervals, err := e.Classify(tone(600, 0.5), 16000)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if len(intervals) != 1 {
		t.Fatalf("intervals = %v, want one", intervals)
	}
	if intervals[0].End != 600 {
		t.Errorf("interval end = %d, want 600", intervals[0].End)
	}
}

func TestEnergyDeterministic(t *testing.T) {
	e := NewEnergy(0, 0)
	w := tone(1024, 0.3)

	a, _ := e.Classify(w, 16000)
	b, _ := e.Classify(w, 16000)
	if len(a) != len(b) {
		t.Fatalf("interval counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("interval %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestEnergyEmptyWindow(t *testing.T) {
	e := NewEnergy(0, 0)
	intervals, err := e.Classify(nil, 16000)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if len(intervals) != 0 {
		t.Errorf("intervals = %v, want none", intervals)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	c, err := New(Config{Backend: "energy"})
	if err != nil {
		t.Fatalf("New(energy) error = %v", err)
	}
	if _, ok := c.(*Energy); !ok {
		t.Errorf("classifier type = %T, want *Energy", c)
	}

	if _, err := New(Config{Backend: "bogus"}); err == nil {
		t.Error("New(bogus) should fail")
	}
}
