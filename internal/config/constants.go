package config

// Built-in defaults, overridable via config file and environment
const (
	DefaultHTTPAddr = ":8717"

	DefaultSampleRate       = 16000
	DefaultChannels         = 1
	DefaultChunkSize        = 64
	DefaultBatchSize        = 100
	DefaultQueueCapacity    = 256
	DefaultCollectTimeoutMS = 1000

	DefaultVADBackend    = "auto"
	DefaultVADThreshold  = 0.5
	DefaultVADWindowSize = 512

	DefaultSilenceThreshold = 3
	DefaultExitThreshold    = 10

	DefaultTranscriptionEndpoint       = "https://api.openai.com/v1/audio/transcriptions"
	DefaultTranscriptionModel          = "whisper-1"
	DefaultLanguage                    = "ko"
	DefaultTranscriptionTimeoutSeconds = 60
	DefaultMaxRetries                  = 5
	DefaultMaxConcurrent               = 4

	DefaultLogLevel = "info"
)
