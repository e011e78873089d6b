package policy

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWrap_Empty(t *testing.T) {
	p := Wrap[int]()
	out := p.Execute(context.Background(), NewContext(), func(context.Context, *Context) Outcome[int] {
		return OK(1)
	})
	if !out.Success() {
		t.Errorf("empty wrap = %v, want pass-through", out.Err)
	}
}

func TestWrap_OrderOutermostFirst(t *testing.T) {
	var order []string
	probe := func(name string) Policy[int] {
		return probePolicy{name: name, order: &order}
	}

	p := Wrap(probe("outer"), probe("middle"), probe("inner"))
	_ = p.Execute(context.Background(), NewContext(), func(context.Context, *Context) Outcome[int] {
		order = append(order, "op")
		return OK(1)
	})

	want := []string{"outer", "middle", "inner", "op"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

type probePolicy struct {
	name  string
	order *[]string
}

func (p probePolicy) Execute(ctx context.Context, ec *Context, op Operation[int]) Outcome[int] {
	*p.order = append(*p.order, p.name)
	return op(ctx, ec)
}

func TestWrap_SharedExecutionContext(t *testing.T) {
	retry := NewRetry(RetryConfig[int]{MaxAttempts: 3})
	p := Wrap[int](retry, NoOp[int]())

	ec := NewContext()
	calls := 0
	_ = p.Execute(context.Background(), ec, func(_ context.Context, inner *Context) Outcome[int] {
		calls++
		if inner != ec {
			t.Error("the same execution context must flow through every layer")
		}
		if calls < 3 {
			return Fault[int](errService)
		}
		return OK(1)
	})

	if ec.Attempts() != 2 {
		t.Errorf("Attempts() = %d, want 2 recorded in the shared context", ec.Attempts())
	}
}

func TestWrap_RetryOutsideBreaker(t *testing.T) {
	// Each retry attempt separately consults breaker state and counts
	// toward its failure totals.
	cb := NewCircuitBreaker(BreakerConfig[int]{
		FailureThreshold: 2,
		BreakDuration:    time.Minute,
	})
	retry := NewRetry(RetryConfig[int]{
		MaxAttempts: 5,
		Handle: []Predicate[int]{
			HandleFaults[int](), // includes ErrCircuitOpen
		},
	})

	p := Wrap[int](retry, cb)

	innerCalls := 0
	out := p.Execute(context.Background(), NewContext(), func(context.Context, *Context) Outcome[int] {
		innerCalls++
		return Fault[int](errService)
	})

	// Attempts 1 and 2 reach the operation and trip the breaker; attempts
	// 3..5 are rejected without invoking it.
	if innerCalls != 2 {
		t.Errorf("inner calls = %d, want 2 before the breaker opened", innerCalls)
	}
	if !errors.Is(out.Err, ErrCircuitOpen) {
		t.Errorf("final outcome = %v, want ErrCircuitOpen from the last attempt", out.Err)
	}
	if cb.State() != StateOpen {
		t.Errorf("breaker state = %v, want open", cb.State())
	}
}

func TestWrap_BreakerOutsideRetry(t *testing.T) {
	// The breaker sees only the aggregate outcome after retries exhaust.
	cb := NewCircuitBreaker(BreakerConfig[int]{
		FailureThreshold: 2,
		BreakDuration:    time.Minute,
	})
	retry := NewRetry(RetryConfig[int]{MaxAttempts: 3})

	p := Wrap[int](cb, retry)

	innerCalls := 0
	_ = p.Execute(context.Background(), NewContext(), func(context.Context, *Context) Outcome[int] {
		innerCalls++
		return Fault[int](errService)
	})

	if innerCalls != 3 {
		t.Errorf("inner calls = %d, want all 3 retry attempts", innerCalls)
	}
	// One aggregate failure recorded; threshold 2 not yet reached.
	if cb.State() != StateClosed {
		t.Errorf("breaker state = %v, want closed after one aggregate failure", cb.State())
	}

	_ = p.Execute(context.Background(), NewContext(), func(context.Context, *Context) Outcome[int] {
		return Fault[int](errService)
	})
	if cb.State() != StateOpen {
		t.Errorf("breaker state = %v, want open after second aggregate failure", cb.State())
	}
}

func TestWrap_FallbackOutermostCatchesRejections(t *testing.T) {
	bh := NewBulkhead(BulkheadConfig[int]{MaxConcurrency: 1, MaxQueue: 0})
	fb := NewFallback(FallbackConfig[int]{
		Action: func(Outcome[int], *Context) Outcome[int] { return OK(-1) },
		Handle: []Predicate[int]{HandleErrIs[int](ErrBulkheadRejected)},
	})

	p := Wrap[int](fb, bh)
	ctx := context.Background()

	// Occupy the only slot.
	release := make(chan struct{})
	running := make(chan struct{})
	go func() {
		_ = bh.Execute(ctx, NewContext(), func(context.Context, *Context) Outcome[int] {
			close(running)
			<-release
			return OK(0)
		})
	}()
	<-running
	defer close(release)

	out := p.Execute(ctx, NewContext(), func(context.Context, *Context) Outcome[int] {
		return OK(1)
	})

	if !out.Success() || out.Value != -1 {
		t.Errorf("outcome = (%d, %v), want the fallback to absorb the bulkhead rejection", out.Value, out.Err)
	}
}

func TestWrap_NestedWraps(t *testing.T) {
	inner := Wrap[int](NewRetry(RetryConfig[int]{MaxAttempts: 2}), NoOp[int]())
	outer := Wrap[int](FallbackValue(0), inner)

	calls := 0
	out := outer.Execute(context.Background(), NewContext(), func(context.Context, *Context) Outcome[int] {
		calls++
		return Fault[int](errService)
	})

	if calls != 2 {
		t.Errorf("calls = %d, want the nested retry to run", calls)
	}
	if !out.Success() || out.Value != 0 {
		t.Errorf("outcome = (%d, %v), want the outer fallback value", out.Value, out.Err)
	}
}

func TestWrap_FullStack(t *testing.T) {
	// A realistic stack in a sensible order: fallback, retry, breaker,
	// bulkhead, timeout.
	p := Wrap[string](
		FallbackValue("degraded"),
		NewRetry(RetryConfig[string]{MaxAttempts: 2}),
		NewCircuitBreaker(BreakerConfig[string]{FailureThreshold: 10, BreakDuration: time.Minute}),
		NewBulkhead(BulkheadConfig[string]{MaxConcurrency: 4, MaxQueue: 4}),
		NewTimeout(TimeoutConfig[string]{Duration: time.Second, Mode: Optimistic}),
	)

	out := p.Execute(context.Background(), NewContext(), func(context.Context, *Context) Outcome[string] {
		return OK("live")
	})
	if out.Value != "live" {
		t.Errorf("outcome = (%q, %v), want the live value", out.Value, out.Err)
	}

	out = p.Execute(context.Background(), NewContext(), func(context.Context, *Context) Outcome[string] {
		return Fault[string](errService)
	})
	if out.Value != "degraded" {
		t.Errorf("outcome = (%q, %v), want the fallback value", out.Value, out.Err)
	}
}
