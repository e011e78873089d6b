package policy

import "context"

// Outcome is the result of one execution attempt: either a value or a
// fault. Treat it as immutable once produced.
type Outcome[T any] struct {
	// Value is the result of a successful execution.
	Value T

	// Err is the fault raised by the execution, nil on success.
	Err error

	// HandledBy names the policy that substituted this outcome for the
	// original one (e.g. "cache", "fallback"). Empty when the outcome came
	// straight from the unit of work.
	HandledBy string
}

// OK returns a successful outcome carrying v.
func OK[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

// Fault returns a failed outcome carrying err.
func Fault[T any](err error) Outcome[T] {
	return Outcome[T]{Err: err}
}

// FromCall adapts a conventional (value, error) return into an Outcome.
func FromCall[T any](v T, err error) Outcome[T] {
	return Outcome[T]{Value: v, Err: err}
}

// Success reports whether the outcome carries a value rather than a fault.
func (o Outcome[T]) Success() bool {
	return o.Err == nil
}

// Unwrap returns the outcome in conventional (value, error) form.
func (o Outcome[T]) Unwrap() (T, error) {
	return o.Value, o.Err
}

// handledBy returns a copy attributed to the named policy.
func (o Outcome[T]) handledBy(name string) Outcome[T] {
	o.HandledBy = name
	return o
}

// Operation is a unit of work governed by policies. It must honor
// cancellation of ctx if it blocks.
type Operation[T any] func(ctx context.Context, ec *Context) Outcome[T]

// Policy executes an operation under one fault-handling or
// resource-governing strategy. All policy variants and composed wraps
// implement this contract, which is what makes them nestable.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: cancellation must surface as the context's error, untouched.
// - Faults a policy does not own pass through unchanged.
type Policy[T any] interface {
	Execute(ctx context.Context, ec *Context, op Operation[T]) Outcome[T]
}

// Execute runs op under p with a fresh execution context.
func Execute[T any](ctx context.Context, p Policy[T], op Operation[T]) Outcome[T] {
	return p.Execute(ctx, NewContext(), op)
}

// Async runs op under p on its own goroutine and delivers the outcome on
// the returned channel. Semantics are identical to Execute; the channel is
// buffered so an abandoned receive cannot leak the goroutine.
func Async[T any](ctx context.Context, p Policy[T], ec *Context, op Operation[T]) <-chan Outcome[T] {
	if ec == nil {
		ec = NewContext()
	}
	out := make(chan Outcome[T], 1)
	go func() {
		out <- p.Execute(ctx, ec, op)
	}()
	return out
}
