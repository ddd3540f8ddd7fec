package resilience

import "time"

// Breaker defaults
const (
	DefaultThreshold         = 5
	DefaultResetTimeout      = 30 * time.Second
	DefaultHalfOpenSuccesses = 2
)

// Config holds circuit breaker settings
type Config struct {
	Threshold         int           // Consecutive failures before opening
	ResetTimeout      time.Duration // Time before attempting recovery
	HalfOpenSuccesses int           // Successes needed to close from half-open
}

// DefaultBreakerConfig returns sensible defaults
func DefaultBreakerConfig() Config {
	return Config{
		Threshold:         DefaultThreshold,
		ResetTimeout:      DefaultResetTimeout,
		HalfOpenSuccesses: DefaultHalfOpenSuccesses,
	}
}

// TranscriptionBreakerConfig tolerates more failures before opening,
// since the upstream API recovers on its own.
func TranscriptionBreakerConfig() Config {
	return Config{
		Threshold:         8,
		ResetTimeout:      15 * time.Second,
		HalfOpenSuccesses: 1,
	}
}

func (c Config) withDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = DefaultResetTimeout
	}
	if c.HalfOpenSuccesses <= 0 {
		c.HalfOpenSuccesses = DefaultHalfOpenSuccesses
	}
	return c
}
