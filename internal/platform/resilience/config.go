package resilience

import "time"

const (
	defaultRetryBase = 250 * time.Millisecond
	maxRetryBackoff  = 5 * time.Second
)

type CircuitBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	OpenTimeout      time.Duration
	HalfOpenMaxReq   int
	// OnStateChange runs after every transition, outside the breaker lock.
	OnStateChange func(from, to CircuitState)
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 5,
		OpenTimeout:      15 * time.Second,
		HalfOpenMaxReq:   2,
	}
}

// NormalizeCircuitBreakerConfig fills zero or invalid limits with defaults. Enabled
// and OnStateChange are left as given.
func NormalizeCircuitBreakerConfig(cfg CircuitBreakerConfig) CircuitBreakerConfig {
	defaults := DefaultCircuitBreakerConfig()
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = defaults.FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = defaults.OpenTimeout
	}
	if cfg.HalfOpenMaxReq < 1 {
		cfg.HalfOpenMaxReq = defaults.HalfOpenMaxReq
	}
	return cfg
}

// RetryBackoff doubles base for every retry attempt n (0-based) and caps the
// result at five seconds.
func RetryBackoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = defaultRetryBase
	}
	if attempt < 0 {
		attempt = 0
	}
	delay := base
	for i := 0; i < attempt && delay < maxRetryBackoff; i++ {
		delay *= 2
	}
	return min(delay, maxRetryBackoff)
}
