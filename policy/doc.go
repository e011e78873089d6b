// Package policy provides composable resilience policies for executing
// unreliable units of work.
//
// Each policy wraps an operation with one fault-handling or
// resource-governing strategy. Policies share a single execute contract, so
// they can be nested into a pipeline without knowing each other's concrete
// types.
//
// # Policies
//
//   - Retry: re-invokes the operation on handled faults, with optional
//     delay/backoff between attempts.
//
//   - CircuitBreaker: stops invoking a failing operation once failures
//     exceed a threshold, for a cooldown period. A basic variant counts
//     consecutive failures; a windowed variant trips on the failure ratio
//     over a rolling sampling window.
//
//   - Bulkhead: limits concurrent in-flight invocations and bounds a FIFO
//     waiting queue.
//
//   - RateLimiter: limits throughput with a non-blocking token bucket.
//
//   - Cache: memoizes successful outcomes in an external store, keyed by a
//     request fingerprint.
//
//   - Fallback: substitutes a backup outcome when the inner pipeline fails.
//
//   - Timeout: bounds wall-clock duration, optimistically or by racing the
//     operation on its own goroutine.
//
// # Composition
//
// Wrap nests policies outermost-first. Ordering is significant and caller
// controlled:
//
//	breaker := policy.NewCircuitBreaker(policy.BreakerConfig[string]{
//	    FailureThreshold: 5,
//	    BreakDuration:    30 * time.Second,
//	})
//	retry := policy.NewRetry(policy.RetryConfig[string]{
//	    MaxAttempts: 3,
//	    Delay:       policy.ExponentialBackoff(100*time.Millisecond, 2, 5*time.Second),
//	})
//	fallback := policy.FallbackValue("cached default")
//
//	p := policy.Wrap[string](fallback, retry, breaker)
//
//	out := policy.Execute(ctx, p, func(ctx context.Context, ec *policy.Context) policy.Outcome[string] {
//	    return policy.FromCall(fetchRemote(ctx))
//	})
//
// With Retry outside the breaker, every attempt consults breaker state and
// counts toward its totals; swapping the two makes the breaker see only the
// post-retry aggregate. Placing Fallback outermost lets it catch
// ErrCircuitOpen and ErrBulkheadRejected from inner layers, if its
// predicates include them.
package policy
