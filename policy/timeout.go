package policy

import (
	"context"
	"errors"
	"time"
)

// TimeoutMode selects how a timeout is enforced.
type TimeoutMode int

const (
	// Optimistic trusts the operation to observe the cancellation signal
	// propagated through its context. No extra goroutine is spawned.
	Optimistic TimeoutMode = iota

	// Pessimistic races the operation against a timer on its own
	// goroutine and abandons it if the timer fires first. The abandoned
	// work may run to completion in the background; its outcome is
	// discarded except for the OnAbandoned observer.
	Pessimistic
)

// TimeoutConfig configures a timeout policy.
type TimeoutConfig[T any] struct {
	// Duration bounds the wall-clock time of one invocation.
	// Default: 30 seconds.
	Duration time.Duration

	// Mode is Optimistic or Pessimistic. Default: Optimistic.
	Mode TimeoutMode

	// OnTimeout is called when the deadline expires, with the elapsed
	// duration.
	OnTimeout func(elapsed time.Duration)

	// OnAbandoned receives the eventual outcome of work a pessimistic
	// timeout abandoned, if it ever completes. Called on the abandoned
	// goroutine.
	OnAbandoned func(o Outcome[T])
}

// Timeout bounds the duration of an invocation and converts expiry into an
// ErrTimedOut fault.
type Timeout[T any] struct {
	duration    time.Duration
	mode        TimeoutMode
	onTimeout   func(time.Duration)
	onAbandoned func(Outcome[T])
}

// NewTimeout creates a timeout policy.
func NewTimeout[T any](config TimeoutConfig[T]) *Timeout[T] {
	if config.Duration <= 0 {
		config.Duration = 30 * time.Second
	}
	return &Timeout[T]{
		duration:    config.Duration,
		mode:        config.Mode,
		onTimeout:   config.OnTimeout,
		onAbandoned: config.OnAbandoned,
	}
}

// Execute runs op under the configured deadline. The caller's own
// cancellation surfaces unchanged; only this policy's deadline becomes
// ErrTimedOut.
func (t *Timeout[T]) Execute(ctx context.Context, ec *Context, op Operation[T]) Outcome[T] {
	start := time.Now()
	inner, cancel := context.WithTimeout(ctx, t.duration)
	defer cancel()

	if t.mode == Optimistic {
		out := t.executeOptimistic(ctx, inner, ec, op)
		if errors.Is(out.Err, ErrTimedOut) && t.onTimeout != nil {
			t.onTimeout(time.Since(start))
		}
		return out
	}

	out := t.executePessimistic(ctx, inner, ec, op)
	if errors.Is(out.Err, ErrTimedOut) && t.onTimeout != nil {
		t.onTimeout(time.Since(start))
	}
	return out
}

func (t *Timeout[T]) executeOptimistic(parent, inner context.Context, ec *Context, op Operation[T]) Outcome[T] {
	return t.normalize(parent, inner, op(inner, ec))
}

func (t *Timeout[T]) executePessimistic(parent, inner context.Context, ec *Context, op Operation[T]) Outcome[T] {
	done := make(chan Outcome[T], 1)
	go func() {
		done <- op(inner, ec)
	}()

	select {
	case out := <-done:
		return t.normalize(parent, inner, out)
	case <-inner.Done():
		if parent.Err() != nil {
			return Fault[T](parent.Err())
		}
		// Abandon the work; hand its eventual outcome to the observer.
		if t.onAbandoned != nil {
			go func() {
				t.onAbandoned(<-done)
			}()
		}
		return Fault[T](ErrTimedOut)
	}
}

// normalize converts an outcome caused by this policy's own deadline into
// ErrTimedOut while leaving the caller's cancellation untouched.
func (t *Timeout[T]) normalize(parent, inner context.Context, out Outcome[T]) Outcome[T] {
	if out.Err != nil && errors.Is(out.Err, context.DeadlineExceeded) && inner.Err() != nil && parent.Err() == nil {
		return Fault[T](ErrTimedOut)
	}
	return out
}
