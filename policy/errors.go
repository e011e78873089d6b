package policy

import (
	"context"
	"errors"
)

// Sentinel faults produced by the built-in policies. Each policy converts
// only the fault category it owns; everything else passes through unchanged.
var (
	// ErrCircuitOpen is returned when a circuit breaker rejects a call.
	ErrCircuitOpen = errors.New("guardrail: circuit breaker is open")

	// ErrIsolated is returned while a breaker is manually isolated. It
	// matches ErrCircuitOpen under errors.Is.
	ErrIsolated = isolatedError{}

	// ErrBulkheadRejected is returned when both the bulkhead's execution
	// slots and its wait queue are full.
	ErrBulkheadRejected = errors.New("guardrail: bulkhead queue is full")

	// ErrRateLimited is returned when the token bucket is empty.
	ErrRateLimited = errors.New("guardrail: rate limit exceeded")

	// ErrTimedOut is returned when a timeout policy expires before the
	// operation completes.
	ErrTimedOut = errors.New("guardrail: operation timed out")
)

type isolatedError struct{}

func (isolatedError) Error() string { return "guardrail: circuit breaker is isolated" }

// Is makes an isolated rejection satisfy errors.Is(err, ErrCircuitOpen).
func (isolatedError) Is(target error) bool { return target == ErrCircuitOpen }

// IsCancellation reports whether err comes from caller cancellation or an
// expired caller deadline rather than from a policy or the unit of work.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// IsRejection reports whether err is one of the engine's own rejection
// categories: circuit-broken, bulkhead-rejected, rate-limited or timed-out.
func IsRejection(err error) bool {
	return errors.Is(err, ErrCircuitOpen) ||
		errors.Is(err, ErrBulkheadRejected) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimedOut)
}
