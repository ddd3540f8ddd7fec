// Package metrics exposes Prometheus instrumentation for the audio pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all pipeline counters and histograms
type Metrics struct {
	ChunksCaptured     prometheus.Counter
	ChunksDropped      prometheus.Counter
	WindowsCollected   *prometheus.CounterVec // label: kind=full|partial
	SpeechWindows      prometheus.Counter
	SilentWindows      prometheus.Counter
	Utterances         prometheus.Counter
	UtteranceDuration  prometheus.Histogram
	TranscribeRequests prometheus.Counter
	TranscribeFailures prometheus.Counter
	TranscribeDuration prometheus.Histogram
	SessionResets      prometheus.Counter
	SessionTerminated  prometheus.Counter
}

// New registers all metrics on the given registerer. Tests pass a
// private registry to avoid global collisions.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ChunksCaptured: f.NewCounter(prometheus.CounterOpts{
			Name: "atot_chunks_captured_total",
			Help: "Audio chunks read from the capture device",
		}),
		ChunksDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "atot_chunks_dropped_total",
			Help: "Audio chunks dropped because the queue was full",
		}),
		WindowsCollected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "atot_windows_collected_total",
			Help: "Analysis windows assembled from the chunk queue",
		}, []string{"kind"}),
		SpeechWindows: f.NewCounter(prometheus.CounterOpts{
			Name: "atot_speech_windows_total",
			Help: "Windows classified as containing speech",
		}),
		SilentWindows: f.NewCounter(prometheus.CounterOpts{
			Name: "atot_silent_windows_total",
			Help: "Windows classified as silent",
		}),
		Utterances: f.NewCounter(prometheus.CounterOpts{
			Name: "atot_utterances_total",
			Help: "Utterances finalized by the segmenter",
		}),
		UtteranceDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "atot_utterance_duration_seconds",
			Help:    "Duration of finalized utterances",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		TranscribeRequests: f.NewCounter(prometheus.CounterOpts{
			Name: "atot_transcribe_requests_total",
			Help: "Transcription attempts",
		}),
		TranscribeFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "atot_transcribe_failures_total",
			Help: "Transcription attempts that failed after retries",
		}),
		TranscribeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "atot_transcribe_duration_seconds",
			Help:    "End-to-end transcription latency",
			Buckets: prometheus.DefBuckets,
		}),
		SessionResets: f.NewCounter(prometheus.CounterOpts{
			Name: "atot_session_resets_total",
			Help: "Session resets requested",
		}),
		SessionTerminated: f.NewCounter(prometheus.CounterOpts{
			Name: "atot_session_terminations_total",
			Help: "Sessions terminated after prolonged inactivity",
		}),
	}
}
