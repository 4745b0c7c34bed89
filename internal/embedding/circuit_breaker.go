package embedding

import (
	"fmt"

	"candidaterank/internal/config"
	"candidaterank/internal/errors"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker guards embedding calls. A nil *CircuitBreaker runs calls unguarded.
type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker[[]float32]
}

// NewCircuitBreaker returns nil when the breaker is disabled
func NewCircuitBreaker(name string, cfg config.CircuitBreakerConfig, logger *errors.Logger) *CircuitBreaker {
	if !cfg.Enabled {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        fmt.Sprintf("embedding-%s", name),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger == nil {
				return
			}
			logger.Warn("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
				"failure_threshold", cfg.FailureThreshold)
		},
	}

	return &CircuitBreaker{cb: gobreaker.NewCircuitBreaker[[]float32](settings)}
}

// Execute runs fn under breaker protection
func (b *CircuitBreaker) Execute(fn func() ([]float32, error)) ([]float32, error) {
	if b == nil || b.cb == nil {
		return fn()
	}
	return b.cb.Execute(fn)
}

// Stats returns circuit breaker statistics
func (b *CircuitBreaker) Stats() map[string]any {
	if b == nil || b.cb == nil {
		return map[string]any{"enabled": false}
	}

	counts := b.cb.Counts()
	return map[string]any{
		"enabled":               true,
		"name":                  b.cb.Name(),
		"state":                 b.cb.State().String(),
		"requests":              counts.Requests,
		"total_failures":        counts.TotalFailures,
		"consecutive_failures":  counts.ConsecutiveFailures,
		"consecutive_successes": counts.ConsecutiveSuccesses,
	}
}

// IsHealthy reports whether the breaker is closed
func (b *CircuitBreaker) IsHealthy() bool {
	if b == nil || b.cb == nil {
		return true
	}
	return b.cb.State() == gobreaker.StateClosed
}
