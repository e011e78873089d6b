package policy

import "context"

// wrapped is the composition of an ordered policy sequence.
type wrapped[T any] struct {
	policies []Policy[T]
}

// Wrap composes policies into a single pipeline, outermost first. The
// composition is purely structural: each layer's execute delegates to the
// next through the uniform Policy contract, so any variant, including
// another Wrap, can appear at any depth.
//
// Ordering is caller-controlled and semantically significant. Retry outside
// a breaker subjects every attempt to breaker state and counts each one
// toward its totals; the reverse order shows the breaker only the
// post-retry aggregate. A Fallback placed outermost can absorb rejections
// raised by any inner layer.
func Wrap[T any](policies ...Policy[T]) Policy[T] {
	switch len(policies) {
	case 0:
		return noop[T]{}
	case 1:
		return policies[0]
	}
	owned := make([]Policy[T], len(policies))
	copy(owned, policies)
	return wrapped[T]{policies: owned}
}

// Execute threads op through the stack from outermost to innermost.
func (w wrapped[T]) Execute(ctx context.Context, ec *Context, op Operation[T]) Outcome[T] {
	chain := op
	for i := len(w.policies) - 1; i >= 0; i-- {
		p, inner := w.policies[i], chain
		chain = func(ctx context.Context, ec *Context) Outcome[T] {
			return p.Execute(ctx, ec, inner)
		}
	}
	return chain(ctx, ec)
}

// noop executes the operation with no strategy applied.
type noop[T any] struct{}

func (noop[T]) Execute(ctx context.Context, ec *Context, op Operation[T]) Outcome[T] {
	return op(ctx, ec)
}

// NoOp returns a policy that invokes the operation directly. Useful as a
// placeholder where a Policy is required.
func NoOp[T any]() Policy[T] { return noop[T]{} }
