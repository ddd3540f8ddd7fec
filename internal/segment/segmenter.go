// Package segment implements the utterance segmentation state machine:
// it turns a stream of classified analysis windows into discrete,
// bounded utterance buffers.
package segment

import "log/slog"

// With 100 chunks of 64 samples at 16 kHz a window is 400 ms, so three
// silent windows (about 1.2 s) close an utterance and ten idle ones
// (about 4 s) end the session.
const (
	DefaultSilenceThreshold = 3
	DefaultExitThreshold    = 10
)

// State is the segmenter's recording state.
type State uint8

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

// EventKind tags the outcome of one processed window.
type EventKind uint8

const (
	// EventSilent: idle, nothing heard.
	EventSilent EventKind = iota
	// EventSpeech: recording (the window may itself be silent padding).
	EventSpeech
	// EventFinished: an utterance was finalized; Event.Buffer holds it.
	EventFinished
	// EventError: too long idle; terminal until Reset.
	EventError
	// EventReset: state was explicitly cleared.
	EventReset
)

func (k EventKind) String() string {
	switch k {
	case EventSilent:
		return "Silent"
	case EventSpeech:
		return "Speech"
	case EventFinished:
		return "Finished"
	case EventError:
		return "Error"
	case EventReset:
		return "Reset"
	}
	return "Unknown"
}

// Event is the discriminated result of one Step or Reset. Buffer is
// non-nil only for EventFinished.
type Event struct {
	Kind   EventKind
	Buffer []float32
}

// Counters is a snapshot of the segmenter's bookkeeping for the control
// surface.
type Counters struct {
	State          State `json:"state"`
	SilenceRun     int   `json:"silence_run"`
	IdleSilenceRun int   `json:"idle_silence_run"`
	BufferSamples  int   `json:"buffer_samples"`
	Terminated     bool  `json:"terminated"`
}

// Segmenter tracks recording state across windows and assembles the
// growing utterance buffer. It is owned by a single session loop and is
// not safe for concurrent use; give each session its own instance.
type Segmenter struct {
	silenceThreshold int
	exitThreshold    int

	state          State
	silenceRun     int
	idleSilenceRun int
	terminated     bool
	buf            []float32
}

// New creates a segmenter. Non-positive thresholds select the defaults.
func New(silenceThreshold, exitThreshold int) *Segmenter {
	if silenceThreshold <= 0 {
		silenceThreshold = DefaultSilenceThreshold
	}
	if exitThreshold <= 0 {
		exitThreshold = DefaultExitThreshold
	}
	return &Segmenter{
		silenceThreshold: silenceThreshold,
		exitThreshold:    exitThreshold,
	}
}

// Step processes one classified window. The window's samples are
// appended to the utterance buffer while recording; silent windows are
// padded in as zeros of the same length so the finalized utterance
// keeps its internal timing. The finalized buffer therefore ends with
// silenceThreshold padded windows; that trailing silence is not
// trimmed.
func (s *Segmenter) Step(hasSpeech bool, window []float32) Event {
	if s.terminated {
		// No further windows are processed until an explicit Reset.
		return Event{Kind: EventError}
	}

	if hasSpeech {
		if s.state == Idle {
			s.state = Recording
			s.buf = s.buf[:0]
			s.idleSilenceRun = 0
			slog.Debug("speech onset")
		}
		if s.silenceRun > 0 {
			slog.Debug("speech re-detected, silence run reset", "was", s.silenceRun)
			s.silenceRun = 0
		}
		s.buf = append(s.buf, window...)
		return Event{Kind: EventSpeech}
	}

	if s.state == Recording {
		s.buf = append(s.buf, make([]float32, len(window))...)
		s.silenceRun++
		if s.silenceRun >= s.silenceThreshold {
			return s.finalize()
		}
		// Still recording through the gap.
		return Event{Kind: EventSpeech}
	}

	s.idleSilenceRun++
	if s.idleSilenceRun >= s.exitThreshold {
		s.terminated = true
		slog.Info("idle silence limit reached, terminating",
			"threshold", s.exitThreshold)
		return Event{Kind: EventError}
	}
	return Event{Kind: EventSilent}
}

func (s *Segmenter) finalize() Event {
	utterance := s.buf
	s.buf = nil
	s.state = Idle
	s.silenceRun = 0
	slog.Debug("utterance finalized", "samples", len(utterance))
	return Event{Kind: EventFinished, Buffer: utterance}
}

// Reset returns the segmenter to its initial values from any state,
// including the terminal one.
func (s *Segmenter) Reset() Event {
	s.state = Idle
	s.silenceRun = 0
	s.idleSilenceRun = 0
	s.terminated = false
	s.buf = nil
	return Event{Kind: EventReset}
}

// Terminated reports whether the segmenter is in the terminal state.
func (s *Segmenter) Terminated() bool { return s.terminated }

// Snapshot returns the current counters.
func (s *Segmenter) Snapshot() Counters {
	return Counters{
		State:          s.state,
		SilenceRun:     s.silenceRun,
		IdleSilenceRun: s.idleSilenceRun,
		BufferSamples:  len(s.buf),
		Terminated:     s.terminated,
	}
}
