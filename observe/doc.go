// Package observe turns policy observer callbacks into structured log
// events and OpenTelemetry metrics.
//
// The engine core never logs or records metrics on its own; a Monitor is
// wired in through the per-policy callback configuration:
//
//	monitor, _ := observe.NewMonitor(logger, meter)
//
//	breaker := policy.NewCircuitBreaker(policy.BreakerConfig[string]{
//	    FailureThreshold: 5,
//	    BreakDuration:    30 * time.Second,
//	    OnBreak:          monitor.OnBreak("payments"),
//	    OnReset:          monitor.OnReset("payments"),
//	    OnHalfOpen:       monitor.OnHalfOpen("payments"),
//	})
//
// Exporter wiring (OTLP, Prometheus, ...) is the host application's
// concern; the monitor only emits through the metric.Meter API.
package observe
