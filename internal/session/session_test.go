package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kennychae/atot/internal/metrics"
	"github.com/kennychae/atot/internal/segment"
	"github.com/kennychae/atot/internal/vad"
)

// scriptedCollector replays a fixed sequence of windows, then reports
// no data.
type scriptedCollector struct {
	mu      sync.Mutex
	windows [][]float32
}

func (c *scriptedCollector) Collect(ctx context.Context) ([]float32, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.windows) == 0 {
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Millisecond):
		}
		return nil, 0
	}
	w := c.windows[0]
	c.windows = c.windows[1:]
	return w, 1
}

func (c *scriptedCollector) Target() int { return 1 }

// levelClassifier reports speech when any sample exceeds 0.1.
type levelClassifier struct {
	err error
}

func (lc levelClassifier) Classify(window []float32, sampleRate int) ([]vad.Interval, error) {
	if lc.err != nil {
		return nil, lc.err
	}
	for _, s := range window {
		if s > 0.1 {
			return []vad.Interval{{Start: 0, End: len(window)}}, nil
		}
	}
	return nil, nil
}

// fakeTranscriber returns scripted results in call order.
type fakeTranscriber struct {
	mu      sync.Mutex
	results []string
	errs    []error
	calls   int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, wavData []byte, language string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return "", errors.New("unexpected call")
}

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func speechWindow() []float32 { w := make([]float32, 80); w[0] = 0.5; return w }
func silentWindow() []float32 { return make([]float32, 80) }

func newTestSession(t *testing.T, windows [][]float32, cls vad.Classifier, tr Transcriber, seg *segment.Segmenter) (*Session, context.CancelFunc) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	s := New(Config{SampleRate: 16000, Language: "ko"}, &scriptedCollector{windows: windows}, cls, tr, seg, m)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = s.Run(ctx) }()
	t.Cleanup(cancel)
	return s, cancel
}

func waitForEvent(t *testing.T, s *Session) TranscriptEvent {
	t.Helper()
	select {
	case evt := <-s.Events():
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for transcript event")
		return TranscriptEvent{}
	}
}

func TestSessionTranscribesFinishedUtterance(t *testing.T) {
	windows := [][]float32{speechWindow(), silentWindow(), silentWindow()}
	tr := &fakeTranscriber{results: []string{"안녕하세요"}}

	s, _ := newTestSession(t, windows, levelClassifier{}, tr, segment.New(2, 10))

	evt := waitForEvent(t, s)
	if evt.Text != "안녕하세요" {
		t.Errorf("event text = %q, want 안녕하세요", evt.Text)
	}
	if evt.Err != "" {
		t.Errorf("event error = %q, want empty", evt.Err)
	}

	deadline := time.Now().Add(time.Second)
	for len(s.History().Entries()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	entries := s.History().Entries()
	if len(entries) != 1 || entries[0].Text != "안녕하세요" {
		t.Errorf("history = %+v, want one entry", entries)
	}
}

func TestSessionIsolatesTranscriptionErrors(t *testing.T) {
	windows := [][]float32{
		speechWindow(), silentWindow(), silentWindow(), // first utterance
		speechWindow(), silentWindow(), silentWindow(), // second utterance
	}
	tr := &fakeTranscriber{
		results: []string{"", "second"},
		errs:    []error{errors.New("api down"), nil},
	}

	s, _ := newTestSession(t, windows, levelClassifier{}, tr, segment.New(2, 10))

	var texts []string
	var errCount int
	for i := 0; i < 2; i++ {
		evt := waitForEvent(t, s)
		if evt.Err != "" {
			errCount++
		} else {
			texts = append(texts, evt.Text)
		}
	}

	if errCount != 1 {
		t.Errorf("error events = %d, want 1", errCount)
	}
	if len(texts) != 1 || texts[0] != "second" {
		t.Errorf("text events = %v, want [second]", texts)
	}
	if s.State() == StateTerminated {
		t.Error("transcription errors must not terminate the session")
	}
}

func TestSessionTerminatesAfterIdleSilence(t *testing.T) {
	windows := [][]float32{silentWindow(), silentWindow(), silentWindow()}
	s, _ := newTestSession(t, windows, levelClassifier{}, &fakeTranscriber{}, segment.New(2, 3))

	deadline := time.Now().Add(2 * time.Second)
	for s.State() != StateTerminated && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.State() != StateTerminated {
		t.Fatalf("state = %q, want %q", s.State(), StateTerminated)
	}
}

func TestSessionTreatsClassifierErrorsAsSilent(t *testing.T) {
	windows := [][]float32{speechWindow(), speechWindow(), speechWindow()}
	cls := levelClassifier{err: errors.New("model failure")}
	s, _ := newTestSession(t, windows, cls, &fakeTranscriber{}, segment.New(2, 3))

	deadline := time.Now().Add(2 * time.Second)
	for s.State() != StateTerminated && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.State() != StateTerminated {
		t.Error("classifier errors should count as idle silence")
	}
}

func TestSessionResetResumesAfterTermination(t *testing.T) {
	windows := [][]float32{silentWindow(), silentWindow()}
	s, _ := newTestSession(t, windows, levelClassifier{}, &fakeTranscriber{}, segment.New(2, 2))

	deadline := time.Now().Add(2 * time.Second)
	for s.State() != StateTerminated && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.State() != StateTerminated {
		t.Fatal("session did not terminate")
	}

	s.Reset()
	if s.State() != StateListening {
		t.Errorf("state after reset = %q, want %q", s.State(), StateListening)
	}
	if s.Status().Segmenter.Terminated {
		t.Error("segmenter still terminated after reset")
	}
}

func TestSessionStopStart(t *testing.T) {
	s, _ := newTestSession(t, nil, levelClassifier{}, &fakeTranscriber{}, segment.New(2, 10))

	s.Stop()
	if s.State() != StateStopped {
		t.Errorf("state = %q, want %q", s.State(), StateStopped)
	}
	s.Start()
	if s.State() != StateListening {
		t.Errorf("state = %q, want %q", s.State(), StateListening)
	}
}

func TestSessionStopDoesNotResumeTerminated(t *testing.T) {
	windows := [][]float32{silentWindow(), silentWindow()}
	s, _ := newTestSession(t, windows, levelClassifier{}, &fakeTranscriber{}, segment.New(2, 2))

	deadline := time.Now().Add(2 * time.Second)
	for s.State() != StateTerminated && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	s.Stop()
	if s.State() != StateTerminated {
		t.Errorf("Stop changed terminated state to %q", s.State())
	}
	s.Start()
	if s.State() != StateTerminated {
		t.Errorf("Start changed terminated state to %q", s.State())
	}
}

func TestSessionEmptyTranscriptNotStored(t *testing.T) {
	windows := [][]float32{speechWindow(), silentWindow(), silentWindow()}
	tr := &fakeTranscriber{results: []string{"   "}}

	s, _ := newTestSession(t, windows, levelClassifier{}, tr, segment.New(2, 10))

	deadline := time.Now().Add(2 * time.Second)
	for tr.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)

	if n := len(s.History().Entries()); n != 0 {
		t.Errorf("history entries = %d, want 0 for whitespace transcript", n)
	}
}
