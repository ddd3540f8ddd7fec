// Package session coordinates the capture, classification, segmentation,
// and transcription stages into a single processing loop.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kennychae/atot/internal/audio"
	"github.com/kennychae/atot/internal/metrics"
	"github.com/kennychae/atot/internal/segment"
	"github.com/kennychae/atot/internal/syncx"
	"github.com/kennychae/atot/internal/trace"
	"github.com/kennychae/atot/internal/vad"
)

// Transcriber converts WAV audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, wavData []byte, language string) (string, error)
}

// Collector yields analysis windows assembled from captured chunks.
// Collect returns the window and the number of chunks it gathered; zero
// means no data arrived.
type Collector interface {
	Collect(ctx context.Context) ([]float32, int)
	Target() int
}

// Config holds session settings
type Config struct {
	SampleRate  int
	Language    string
	HistorySize int
	EventBuffer int
}

func (c Config) withDefaults() Config {
	if c.HistorySize <= 0 {
		c.HistorySize = DefaultHistorySize
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = DefaultEventBuffer
	}
	return c
}

// Status is a point-in-time view of the session for the control API.
type Status struct {
	State       string           `json:"state"`
	Segmenter   segment.Counters `json:"segmenter"`
	Transcripts int              `json:"transcripts"`
}

// Session runs the utterance pipeline. One Session owns one Segmenter.
type Session struct {
	cfg         Config
	collector   Collector
	classifier  vad.Classifier
	transcriber Transcriber
	history     *History
	metrics     *metrics.Metrics

	segMu     sync.Mutex
	segmenter *segment.Segmenter

	state syncx.Guard[string]
	wg    sync.WaitGroup
}

// New creates a session. The segmenter uses its default thresholds when
// seg is nil.
func New(cfg Config, collector Collector, classifier vad.Classifier, transcriber Transcriber, seg *segment.Segmenter, m *metrics.Metrics) *Session {
	cfg = cfg.withDefaults()
	if seg == nil {
		seg = segment.New(segment.DefaultSilenceThreshold, segment.DefaultExitThreshold)
	}
	s := &Session{
		cfg:         cfg,
		collector:   collector,
		classifier:  classifier,
		transcriber: transcriber,
		history:     NewHistory(cfg.HistorySize, cfg.EventBuffer),
		metrics:     m,
		segmenter:   seg,
	}
	s.state.Set(StateListening)
	return s
}

// Run drives the pipeline until ctx is cancelled. While stopped or
// terminated the loop idles; Reset or Start resumes it.
func (s *Session) Run(ctx context.Context) error {
	log := trace.Logger(ctx)
	log.Info("session started", "language", s.cfg.Language, "sample_rate", s.cfg.SampleRate)

	for {
		if err := ctx.Err(); err != nil {
			s.wg.Wait()
			log.Info("session stopped", "reason", "context cancelled")
			return nil
		}

		if s.state.Get() != StateListening {
			select {
			case <-ctx.Done():
			case <-time.After(idlePollInterval):
			}
			continue
		}

		window, gathered := s.collector.Collect(ctx)
		if gathered == 0 {
			continue
		}
		if gathered < s.collector.Target() {
			s.metrics.WindowsCollected.WithLabelValues("partial").Inc()
		} else {
			s.metrics.WindowsCollected.WithLabelValues("full").Inc()
		}

		hasSpeech := s.classify(ctx, window)
		ev := s.step(hasSpeech, window)

		switch ev.Kind {
		case segment.EventSpeech:
			s.metrics.SpeechWindows.Inc()
		case segment.EventSilent:
			s.metrics.SilentWindows.Inc()
		case segment.EventFinished:
			s.metrics.Utterances.Inc()
			duration := float64(len(ev.Buffer)) / float64(s.cfg.SampleRate)
			s.metrics.UtteranceDuration.Observe(duration)
			buf := ev.Buffer
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.handleUtterance(ctx, buf, duration)
			}()
		case segment.EventError:
			s.metrics.SessionTerminated.Inc()
			s.state.Set(StateTerminated)
			s.history.Emit(TranscriptEvent{Timestamp: time.Now(), State: StateTerminated})
			log.Warn("session terminated after prolonged silence")
		}
	}
}

// classify runs the voice activity classifier. Classifier failures are
// transient: the window is treated as silent and the loop continues.
func (s *Session) classify(ctx context.Context, window []float32) bool {
	intervals, err := s.classifier.Classify(window, s.cfg.SampleRate)
	if err != nil {
		trace.Logger(ctx).Warn("classifier error, treating window as silent", "error", err)
		return false
	}
	return len(intervals) > 0
}

func (s *Session) step(hasSpeech bool, window []float32) segment.Event {
	s.segMu.Lock()
	defer s.segMu.Unlock()
	return s.segmenter.Step(hasSpeech, window)
}

// handleUtterance encodes and transcribes one finalized utterance.
// Failures are isolated: they surface as an event but never stop the loop.
func (s *Session) handleUtterance(ctx context.Context, samples []float32, duration float64) {
	ctx, span := trace.StartSpan(ctx, "handle_utterance")
	defer span.End()
	span.SetAttr("samples", len(samples))

	log := trace.Logger(ctx)
	wavData, err := audio.EncodeWAV(audio.Float32ToPCM16(samples), s.cfg.SampleRate)
	if err != nil {
		log.Error("wav encode error", "error", err)
		return
	}

	start := time.Now()
	s.metrics.TranscribeRequests.Inc()
	text, err := s.transcriber.Transcribe(ctx, wavData, s.cfg.Language)
	s.metrics.TranscribeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.TranscribeFailures.Inc()
		span.SetAttr("error", err.Error())
		log.Error("transcription error", "error", err)
		s.history.Emit(TranscriptEvent{Timestamp: time.Now(), Err: err.Error(), Duration: duration})
		return
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	log.Info("transcribed", "text", text, "duration_seconds", duration)
	s.history.Add(text, duration)
	s.history.Emit(TranscriptEvent{Timestamp: time.Now(), Text: text, Duration: duration})
}

// Reset clears the segmenter and resumes listening from any state.
func (s *Session) Reset() {
	s.segMu.Lock()
	s.segmenter.Reset()
	s.segMu.Unlock()
	s.state.Set(StateListening)
	s.metrics.SessionResets.Inc()
	s.history.Emit(TranscriptEvent{Timestamp: time.Now(), State: StateListening})
}

// Stop pauses processing. Terminated sessions stay terminated.
func (s *Session) Stop() {
	s.state.Update(func(st *string) {
		if *st == StateListening {
			*st = StateStopped
		}
	})
}

// Start resumes a stopped session. Terminated sessions require Reset.
func (s *Session) Start() {
	s.state.Update(func(st *string) {
		if *st == StateStopped {
			*st = StateListening
		}
	})
}

// State returns the current session state.
func (s *Session) State() string {
	return s.state.Get()
}

// Status returns a snapshot for the control API.
func (s *Session) Status() Status {
	s.segMu.Lock()
	counters := s.segmenter.Snapshot()
	s.segMu.Unlock()
	return Status{
		State:       s.state.Get(),
		Segmenter:   counters,
		Transcripts: len(s.history.Entries()),
	}
}

// History returns the transcript store.
func (s *Session) History() *History {
	return s.history
}

// Events returns the transcript event stream.
func (s *Session) Events() <-chan TranscriptEvent {
	return s.history.Events()
}
