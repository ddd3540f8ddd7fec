// Package server provides HTTP and WebSocket handlers
package server

const (
	// Default lookback for GET /api/transcripts
	DefaultTranscriptSeconds = 300

	// Upload limit for POST /api/transcribe (10MB ~ 5 minutes of 16kHz PCM16)
	MaxUploadBytes = 10 << 20
)
