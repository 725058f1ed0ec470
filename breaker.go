package lingomark

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	FailureThreshold int           // Consecutive failures before the circuit opens
	OpenTimeout      time.Duration // How long the circuit stays open before probing
	HalfOpenRequests int           // Probe requests allowed while half-open
}

// DefaultBreakerConfig returns sensible defaults for circuit breaking.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		HalfOpenRequests: 1,
	}
}

// CircuitBreakerProvider wraps a Provider with a circuit breaker. After too
// many consecutive failures the circuit opens and calls fail fast without
// reaching the upstream API until the open timeout elapses.
type CircuitBreakerProvider struct {
	provider Provider
	breaker  *gobreaker.CircuitBreaker
}

// NewCircuitBreakerProvider creates a new circuit-breaking provider.
func NewCircuitBreakerProvider(provider Provider, cfg BreakerConfig) *CircuitBreakerProvider {
	threshold := cfg.FailureThreshold
	if threshold <= 0 {
		threshold = 5
	}

	timeout := cfg.OpenTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	probes := cfg.HalfOpenRequests
	if probes <= 0 {
		probes = 1
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        provider.Name(),
		MaxRequests: uint32(probes),
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold)
		},
	})

	return &CircuitBreakerProvider{
		provider: provider,
		breaker:  breaker,
	}
}

// Translate implements Provider through the circuit breaker.
func (p *CircuitBreakerProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.provider.Translate(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &ProviderError{
				Provider:  p.provider.Name(),
				Message:   "circuit breaker open",
				Cause:     err,
				Retryable: true,
			}
		}
		return nil, err
	}

	return result.([]string), nil
}

// Name returns the wrapped provider's name.
func (p *CircuitBreakerProvider) Name() string {
	return p.provider.Name()
}

// State returns the current breaker state for inspection.
func (p *CircuitBreakerProvider) State() gobreaker.State {
	return p.breaker.State()
}
