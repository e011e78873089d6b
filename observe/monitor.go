package observe

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/guardrail/policy"
)

// Monitor records policy lifecycle events as zerolog entries and OTel
// counters. One monitor serves any number of policies; events are keyed by
// a caller-chosen policy name.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Callbacks returned by a Monitor must stay fast; they run synchronously
//   inside policy locks.
type Monitor struct {
	log zerolog.Logger

	retries     metric.Int64Counter
	transitions metric.Int64Counter
	rejections  metric.Int64Counter
	fallbacks   metric.Int64Counter
	cacheErrors metric.Int64Counter
	timeouts    metric.Int64Counter
	timeoutHist metric.Float64Histogram
}

// NewMonitor creates a monitor emitting through log and meter.
func NewMonitor(log zerolog.Logger, meter metric.Meter) (*Monitor, error) {
	retries, err := meter.Int64Counter(
		"guardrail.retry.attempts",
		metric.WithDescription("Retry attempts performed"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter(
		"guardrail.breaker.transitions",
		metric.WithDescription("Circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	rejections, err := meter.Int64Counter(
		"guardrail.rejections",
		metric.WithDescription("Calls rejected by a resource-governing policy"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	fallbacks, err := meter.Int64Counter(
		"guardrail.fallbacks",
		metric.WithDescription("Fallback actions invoked"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	cacheErrors, err := meter.Int64Counter(
		"guardrail.cache.errors",
		metric.WithDescription("Cache store or codec failures degraded to misses"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	timeouts, err := meter.Int64Counter(
		"guardrail.timeouts",
		metric.WithDescription("Operations abandoned or cancelled by a timeout policy"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	timeoutHist, err := meter.Float64Histogram(
		"guardrail.timeout.elapsed_ms",
		metric.WithDescription("Elapsed time at the moment a timeout fired"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Monitor{
		log:         log,
		retries:     retries,
		transitions: transitions,
		rejections:  rejections,
		fallbacks:   fallbacks,
		cacheErrors: cacheErrors,
		timeouts:    timeouts,
		timeoutHist: timeoutHist,
	}, nil
}

func nameAttr(name string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("policy.name", name))
}

// OnBreak returns a BreakerConfig.OnBreak callback for the named breaker.
func (m *Monitor) OnBreak(name string) func(from policy.State) {
	return func(from policy.State) {
		m.transitions.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("policy.name", name),
			attribute.String("from", from.String()),
			attribute.String("to", policy.StateOpen.String()),
		))
		m.log.Warn().
			Str("policy", name).
			Str("from", from.String()).
			Str("to", "open").
			Msg("circuit opened")
	}
}

// OnReset returns a BreakerConfig.OnReset callback.
func (m *Monitor) OnReset(name string) func() {
	return func() {
		m.transitions.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("policy.name", name),
			attribute.String("to", policy.StateClosed.String()),
		))
		m.log.Info().Str("policy", name).Msg("circuit closed")
	}
}

// OnHalfOpen returns a BreakerConfig.OnHalfOpen callback.
func (m *Monitor) OnHalfOpen(name string) func() {
	return func() {
		m.transitions.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("policy.name", name),
			attribute.String("to", policy.StateHalfOpen.String()),
		))
		m.log.Info().Str("policy", name).Msg("circuit half-open, trial admitted")
	}
}

// OnBulkheadRejected returns a BulkheadConfig.OnRejected callback.
func (m *Monitor) OnBulkheadRejected(name string) func(ec *policy.Context) {
	return func(ec *policy.Context) {
		m.rejections.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("policy.name", name),
			attribute.String("kind", "bulkhead"),
		))
		m.log.Warn().
			Str("policy", name).
			Str("correlation_id", ec.CorrelationID()).
			Msg("bulkhead rejected call")
	}
}

// OnCacheError returns a CacheConfig.OnCacheError callback.
func (m *Monitor) OnCacheError(name string) func(err error) {
	return func(err error) {
		m.cacheErrors.Add(context.Background(), 1, nameAttr(name))
		m.log.Warn().Str("policy", name).Err(err).Msg("cache degraded to miss")
	}
}

// OnTimeout returns a TimeoutConfig.OnTimeout callback.
func (m *Monitor) OnTimeout(name string) func(elapsed time.Duration) {
	return func(elapsed time.Duration) {
		m.timeouts.Add(context.Background(), 1, nameAttr(name))
		m.timeoutHist.Record(context.Background(), float64(elapsed)/float64(time.Millisecond), nameAttr(name))
		m.log.Warn().
			Str("policy", name).
			Dur("elapsed", elapsed).
			Msg("operation timed out")
	}
}
