package policy

import "context"

// FallbackConfig configures a fallback policy.
type FallbackConfig[T any] struct {
	// Action produces the substitute outcome from the original faulting
	// outcome. Required.
	Action func(o Outcome[T], ec *Context) Outcome[T]

	// Handle decides which outcomes trigger the fallback. Default: any
	// fault except cancellation. Include HandleErrIs(ErrCircuitOpen) etc.
	// to also absorb inner policy rejections.
	Handle []Predicate[T]

	// OnFallback is called synchronously once, before Action runs, with
	// the original faulting outcome.
	OnFallback func(o Outcome[T], ec *Context)
}

// Fallback substitutes a backup outcome when the inner pipeline fails.
type Fallback[T any] struct {
	action     func(Outcome[T], *Context) Outcome[T]
	classifier Classifier[T]
	onFallback func(Outcome[T], *Context)
}

// NewFallback creates a fallback policy. Panics without an Action.
func NewFallback[T any](config FallbackConfig[T]) *Fallback[T] {
	if config.Action == nil {
		panic("policy: FallbackConfig.Action is required")
	}
	return &Fallback[T]{
		action:     config.Action,
		classifier: NewClassifier(config.Handle...),
		onFallback: config.OnFallback,
	}
}

// FallbackValue creates a fallback that substitutes a fixed value for any
// handled fault.
func FallbackValue[T any](v T, handle ...Predicate[T]) *Fallback[T] {
	return NewFallback(FallbackConfig[T]{
		Action: func(Outcome[T], *Context) Outcome[T] { return OK(v) },
		Handle: handle,
	})
}

// Execute invokes op and, when the outcome is handled, returns the
// fallback action's outcome instead. Unhandled outcomes pass through.
func (f *Fallback[T]) Execute(ctx context.Context, ec *Context, op Operation[T]) Outcome[T] {
	out := op(ctx, ec)
	if !f.classifier.Handles(out) {
		return out
	}

	if f.onFallback != nil {
		f.onFallback(out, ec)
	}
	return f.action(out, ec).handledBy("fallback")
}
