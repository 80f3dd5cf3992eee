package backend

import (
	"portal/internal/config"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// newBreaker trips after cfg.ConsecutiveFailures transport errors or 5xx answers.
func newBreaker(name string, cfg config.BreakerConfig, logger *zerolog.Logger) *gobreaker.CircuitBreaker {
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 3
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("backend circuit breaker state change")
		},
	})
}
