package ratings

import (
	"context"
	"errors"

	"github.com/lealre/community-backend/internal/logx"
	"github.com/lealre/community-backend/internal/metrics"
	"github.com/lealre/community-backend/internal/mongodb"
	gobreaker "github.com/sony/gobreaker/v2"
)

const breakerName = "rating-store"

func newBreaker(opts Options) *gobreaker.CircuitBreaker[any] {
	failures := max(opts.BreakerFailures, 1)
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// A missing record or a cancelled caller says nothing about the
		// health of the database.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, mongodb.ErrRecordNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logx.Component("ratings").Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// guarded runs fn through the breaker and maps rejections to
// ErrStorageUnavailable.
func guarded[T any](cb *gobreaker.CircuitBreaker[any], fn func() (T, error)) (T, error) {
	var zero T

	result, err := cb.Execute(func() (any, error) {
		v, err := fn()
		return v, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, ErrStorageUnavailable
		}
		return zero, err
	}

	typed, _ := result.(T)
	return typed, nil
}
