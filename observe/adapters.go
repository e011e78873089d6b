package observe

import (
	"context"
	"time"

	"github.com/jonwraymond/guardrail/policy"
)

// Callbacks whose signature carries the outcome type are generic, so they
// live as free functions over a Monitor rather than methods.

// OnRetry returns a RetryConfig.OnRetry callback for the named policy.
func OnRetry[T any](m *Monitor, name string) func(o policy.Outcome[T], attempt int, delay time.Duration) {
	return func(o policy.Outcome[T], attempt int, delay time.Duration) {
		m.retries.Add(context.Background(), 1, nameAttr(name))
		m.log.Debug().
			Str("policy", name).
			Int("attempt", attempt).
			Dur("delay", delay).
			Err(o.Err).
			Msg("retrying")
	}
}

// OnFallback returns a FallbackConfig.OnFallback callback.
func OnFallback[T any](m *Monitor, name string) func(o policy.Outcome[T], ec *policy.Context) {
	return func(o policy.Outcome[T], ec *policy.Context) {
		m.fallbacks.Add(context.Background(), 1, nameAttr(name))
		m.log.Info().
			Str("policy", name).
			Str("correlation_id", ec.CorrelationID()).
			Err(o.Err).
			Msg("falling back")
	}
}

// OnAbandoned returns a TimeoutConfig.OnAbandoned callback logging the
// eventual outcome of abandoned work.
func OnAbandoned[T any](m *Monitor, name string) func(o policy.Outcome[T]) {
	return func(o policy.Outcome[T]) {
		event := m.log.Debug().Str("policy", name)
		if o.Err != nil {
			event = event.Err(o.Err)
		}
		event.Msg("abandoned operation completed")
	}
}
