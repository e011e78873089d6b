package policy

import (
	"context"
	"time"
)

// Unlimited makes a retry policy attempt forever. An unlimited retry never
// surfaces a handled fault; it returns success or runs until the caller's
// context cancels it.
const Unlimited = -1

// RetryConfig configures a retry policy.
type RetryConfig[T any] struct {
	// MaxAttempts is the total number of attempts including the first.
	// Unlimited retries forever. Default: 3.
	MaxAttempts int

	// Delay computes the wait before each retry. Default: no delay.
	Delay DelayFunc

	// Handle decides which outcomes trigger a retry. Default: any fault
	// except cancellation.
	Handle []Predicate[T]

	// OnRetry is called synchronously once per retry, before the delay,
	// with the faulting outcome, the 1-based retry number and the
	// upcoming delay.
	OnRetry func(o Outcome[T], attempt int, delay time.Duration)
}

// Retry re-invokes the operation on handled faults.
type Retry[T any] struct {
	maxAttempts int
	delay       DelayFunc
	classifier  Classifier[T]
	onRetry     func(Outcome[T], int, time.Duration)
}

// NewRetry creates a retry policy.
func NewRetry[T any](config RetryConfig[T]) *Retry[T] {
	if config.MaxAttempts == 0 {
		config.MaxAttempts = 3
	}
	if config.Delay == nil {
		config.Delay = NoDelay()
	}
	return &Retry[T]{
		maxAttempts: config.MaxAttempts,
		delay:       config.Delay,
		classifier:  NewClassifier(config.Handle...),
		onRetry:     config.OnRetry,
	}
}

// Execute runs op, retrying handled faults until attempts are exhausted.
// The retry count is published in the execution context under KeyAttempts.
func (r *Retry[T]) Execute(ctx context.Context, ec *Context, op Operation[T]) Outcome[T] {
	for attempt := 1; ; attempt++ {
		out := op(ctx, ec)

		// The classifier may also match in-band failure values on
		// successful outcomes, not just raised faults.
		if !r.classifier.Handles(out) {
			return out
		}
		if r.maxAttempts != Unlimited && attempt >= r.maxAttempts {
			return out
		}

		delay := r.delay(attempt)
		if r.onRetry != nil {
			r.onRetry(out, attempt, delay)
		}
		ec.Set(KeyAttempts, attempt)

		if err := sleep(ctx, delay); err != nil {
			return Fault[T](err)
		}
	}
}

// sleep waits for d or until ctx is cancelled, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		// Still observe cancellation between immediate retries.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
