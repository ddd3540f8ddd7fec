package session

import (
	"sync"
	"time"
)

// TranscriptEvent is pushed to subscribers when an utterance completes
// or the session changes state. Exactly one of Text, Err, or State is
// set.
type TranscriptEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text,omitempty"`
	Err       string    `json:"error,omitempty"`
	State     string    `json:"state,omitempty"`
	Duration  float64   `json:"duration_seconds,omitempty"`
}

// Entry is a stored transcript.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
	Duration  float64   `json:"duration_seconds"`
}

// History implements bounded in-memory transcript storage.
type History struct {
	mu       sync.RWMutex
	entries  []Entry
	maxSize  int
	eventsCh chan TranscriptEvent
}

// NewHistory creates a transcript history.
func NewHistory(maxEntries, eventBuffer int) *History {
	return &History{
		entries:  make([]Entry, 0, maxEntries),
		maxSize:  maxEntries,
		eventsCh: make(chan TranscriptEvent, eventBuffer),
	}
}

// Add stores a transcript entry, evicting the oldest past capacity.
func (h *History) Add(text string, duration float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, Entry{
		Timestamp: time.Now(),
		Text:      text,
		Duration:  duration,
	})

	if len(h.entries) > h.maxSize {
		h.entries = h.entries[len(h.entries)-h.maxSize:]
	}
}

// Recent returns entries from the last N seconds, oldest first.
func (h *History) Recent(seconds int) []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cutoff := time.Now().Add(-time.Duration(seconds) * time.Second)
	var result []Entry
	for _, e := range h.entries {
		if !e.Timestamp.Before(cutoff) {
			result = append(result, e)
		}
	}
	return result
}

// Entries returns a copy of all entries.
func (h *History) Entries() []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	result := make([]Entry, len(h.entries))
	copy(result, h.entries)
	return result
}

// Events returns the channel for transcript events.
func (h *History) Events() <-chan TranscriptEvent {
	return h.eventsCh
}

// Emit sends a transcript event (non-blocking).
func (h *History) Emit(event TranscriptEvent) {
	select {
	case h.eventsCh <- event:
	default:
	}
}
