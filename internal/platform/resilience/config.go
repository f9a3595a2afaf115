package resilience

import (
	"fmt"
	"time"
)

type CircuitBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	OpenTimeout      time.Duration
	HalfOpenMaxReq   int
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 3,
		OpenTimeout:      30 * time.Second,
		HalfOpenMaxReq:   1,
	}
}

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

// Validate is used by config loading; zero values are rejected only when the breaker is enabled.
func (c CircuitBreakerConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.FailureThreshold < 1 {
		return fmt.Errorf("CIRCUIT_BREAKER_FAILURE_THRESHOLD must be > 0")
	}
	if c.OpenTimeout <= 0 {
		return fmt.Errorf("CIRCUIT_BREAKER_OPEN_TIMEOUT must be > 0")
	}
	if c.HalfOpenMaxReq < 1 {
		return fmt.Errorf("CIRCUIT_BREAKER_HALF_OPEN_MAX_REQ must be > 0")
	}
	return nil
}
