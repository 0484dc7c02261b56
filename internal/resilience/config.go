package resilience

import "time"

// Config holds the settings for the breaker and limiter guarding backend calls.
type Config struct {
	Breaker BreakerConfig
	Limiter LimiterConfig
}

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening.
	FailureThreshold int

	// SuccessThreshold is the number of half-open successes needed to close.
	SuccessThreshold int

	// OpenTimeout is how long the circuit stays open before probing again.
	OpenTimeout time.Duration

	// HalfOpenMaxRequests caps concurrent probes while half-open.
	HalfOpenMaxRequests int
}

// LimiterConfig configures the token bucket.
type LimiterConfig struct {
	MaxTokens  float64
	RefillRate float64 // tokens per second
	Cost       float64 // tokens per request
}

// DefaultConfig returns settings suited to an interactive ERP client: list
// pages are cheap, and a dead backend should fail fast after a handful of
// errors rather than stall every tab.
func DefaultConfig() *Config {
	return &Config{
		Breaker: BreakerConfig{
			FailureThreshold:    5,
			SuccessThreshold:    2,
			OpenTimeout:         30 * time.Second,
			HalfOpenMaxRequests: 1,
		},
		Limiter: LimiterConfig{
			MaxTokens:  50,
			RefillRate: 10,
			Cost:       1,
		},
	}
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 2
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
	return c
}

func (c LimiterConfig) withDefaults() LimiterConfig {
	if c.MaxTokens <= 0 {
		c.MaxTokens = 50
	}
	if c.RefillRate <= 0 {
		c.RefillRate = 10
	}
	if c.Cost <= 0 {
		c.Cost = 1
	}
	return c
}
