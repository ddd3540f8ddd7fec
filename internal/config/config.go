// Package config loads and validates service configuration
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Audio         AudioConfig         `yaml:"audio"`
	VAD           VADConfig           `yaml:"vad"`
	Segmenter     SegmenterConfig     `yaml:"segmenter"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// AudioConfig contains capture and windowing parameters
type AudioConfig struct {
	Device           string `yaml:"device"` // Substring match; empty selects the default input
	SampleRate       int    `yaml:"sample_rate"`
	Channels         int    `yaml:"channels"`
	ChunkSize        int    `yaml:"chunk_size"`         // Samples per chunk
	BatchSize        int    `yaml:"batch_size"`         // Chunks per analysis window
	QueueCapacity    int    `yaml:"queue_capacity"`
	CollectTimeoutMS int    `yaml:"collect_timeout_ms"` // Per-chunk wait in milliseconds
}

// CollectTimeout returns the per-chunk wait as a duration.
func (a *AudioConfig) CollectTimeout() time.Duration {
	return time.Duration(a.CollectTimeoutMS) * time.Millisecond
}

// VADConfig contains voice activity classifier configuration
type VADConfig struct {
	Backend    string  `yaml:"backend"` // energy, silero, or auto
	ModelPath  string  `yaml:"model_path"`
	Threshold  float32 `yaml:"threshold"`
	WindowSize int     `yaml:"window_size"` // Samples per sub-window
}

// SegmenterConfig contains utterance boundary thresholds
type SegmenterConfig struct {
	SilenceThreshold int `yaml:"silence_threshold"` // Silent windows ending an utterance
	ExitThreshold    int `yaml:"exit_threshold"`    // Idle silent windows terminating the session
}

// TranscriptionConfig contains transcription API configuration
type TranscriptionConfig struct {
	Endpoint       string `yaml:"endpoint"`
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	Language       string `yaml:"language"`
	TimeoutSeconds int    `yaml:"timeout"` // seconds
	MaxRetries     int    `yaml:"max_retries"`
	MaxConcurrent  int    `yaml:"max_concurrent"`
}

// Timeout returns the request timeout as a duration.
func (t *TranscriptionConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{HTTPAddr: DefaultHTTPAddr},
		Audio: AudioConfig{
			SampleRate:     DefaultSampleRate,
			Channels:       DefaultChannels,
			ChunkSize:      DefaultChunkSize,
			BatchSize:      DefaultBatchSize,
			QueueCapacity:    DefaultQueueCapacity,
			CollectTimeoutMS: DefaultCollectTimeoutMS,
		},
		VAD: VADConfig{
			Backend:    DefaultVADBackend,
			Threshold:  DefaultVADThreshold,
			WindowSize: DefaultVADWindowSize,
		},
		Segmenter: SegmenterConfig{
			SilenceThreshold: DefaultSilenceThreshold,
			ExitThreshold:    DefaultExitThreshold,
		},
		Transcription: TranscriptionConfig{
			Endpoint:       DefaultTranscriptionEndpoint,
			Model:          DefaultTranscriptionModel,
			Language:       DefaultLanguage,
			TimeoutSeconds: DefaultTranscriptionTimeoutSeconds,
			MaxRetries:     DefaultMaxRetries,
			MaxConcurrent:  DefaultMaxConcurrent,
		},
		Logging: LoggingConfig{Level: DefaultLogLevel},
	}
}

// Load reads the configuration file, applies environment overrides, and
// validates. A missing path returns defaults.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

// applyEnv overrides secrets and deploy-specific fields from environment
func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Transcription.APIKey = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.Server.HTTPAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate performs validation of the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.VAD.Validate(); err != nil {
		return fmt.Errorf("vad config: %w", err)
	}
	if err := c.Segmenter.Validate(); err != nil {
		return fmt.Errorf("segmenter config: %w", err)
	}
	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.HTTPAddr == "" {
		return fmt.Errorf("http_addr must not be empty")
	}
	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", a.SampleRate)
	}
	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", a.Channels)
	}
	if a.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", a.ChunkSize)
	}
	if a.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", a.BatchSize)
	}
	if a.QueueCapacity <= 0 {
		return fmt.Errorf("queue_capacity must be positive, got %d", a.QueueCapacity)
	}
	if a.CollectTimeoutMS <= 0 {
		return fmt.Errorf("collect_timeout_ms must be positive, got %d", a.CollectTimeoutMS)
	}
	return nil
}

// Validate validates VAD configuration
func (v *VADConfig) Validate() error {
	switch v.Backend {
	case "energy", "silero", "auto":
	default:
		return fmt.Errorf("backend must be energy, silero, or auto, got %q", v.Backend)
	}
	if v.Backend == "silero" && v.ModelPath == "" {
		return fmt.Errorf("model_path required for silero backend")
	}
	if v.Threshold < 0 || v.Threshold > 1 {
		return fmt.Errorf("threshold must be in [0,1], got %f", v.Threshold)
	}
	if v.WindowSize <= 0 {
		return fmt.Errorf("window_size must be positive, got %d", v.WindowSize)
	}
	return nil
}

// Validate validates segmenter configuration
func (s *SegmenterConfig) Validate() error {
	if s.SilenceThreshold <= 0 {
		return fmt.Errorf("silence_threshold must be positive, got %d", s.SilenceThreshold)
	}
	if s.ExitThreshold <= 0 {
		return fmt.Errorf("exit_threshold must be positive, got %d", s.ExitThreshold)
	}
	return nil
}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	if t.Endpoint == "" {
		return fmt.Errorf("endpoint must not be empty")
	}
	if t.Model == "" {
		return fmt.Errorf("model must not be empty")
	}
	if t.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout must be positive, got %d", t.TimeoutSeconds)
	}
	if t.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got %d", t.MaxRetries)
	}
	if t.MaxConcurrent <= 0 {
		return fmt.Errorf("max_concurrent must be positive, got %d", t.MaxConcurrent)
	}
	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("level must be debug, info, warn, or error, got %q", l.Level)
	}
}
