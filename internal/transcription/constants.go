package transcription

import "time"

const (
	DefaultEndpoint      = "https://api.openai.com/v1/audio/transcriptions"
	DefaultModel         = "whisper-1"
	DefaultLanguage      = "ko"
	DefaultTimeout       = 60 * time.Second
	DefaultMaxConcurrent = 4

	fileFieldName   = "file"
	uploadFilename  = "audio.wav"
	maxResponseSize = 1 << 20 // 1MB cap on API responses
)
