package policy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errService = errors.New("service unavailable")

func failing(context.Context, *Context) Outcome[int] { return Fault[int](errService) }

func succeeding(context.Context, *Context) Outcome[int] { return OK(1) }

func TestCircuitBreaker_OpensOnNthConsecutiveFailure(t *testing.T) {
	for _, threshold := range []int{1, 2, 5} {
		cb := NewCircuitBreaker(BreakerConfig[int]{
			FailureThreshold: threshold,
			BreakDuration:    time.Minute,
		})
		ctx := context.Background()

		for i := 0; i < threshold-1; i++ {
			_ = cb.Execute(ctx, NewContext(), failing)
			if cb.State() != StateClosed {
				t.Fatalf("threshold %d: open after %d failures, want closed", threshold, i+1)
			}
		}

		_ = cb.Execute(ctx, NewContext(), failing)
		if cb.State() != StateOpen {
			t.Errorf("threshold %d: state = %v after %dth failure, want open", threshold, cb.State(), threshold)
		}
	}
}

func TestCircuitBreaker_SuccessResetsConsecutiveCount(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig[int]{
		FailureThreshold: 3,
		BreakDuration:    time.Minute,
	})
	ctx := context.Background()

	_ = cb.Execute(ctx, NewContext(), failing)
	_ = cb.Execute(ctx, NewContext(), failing)
	_ = cb.Execute(ctx, NewContext(), succeeding)
	_ = cb.Execute(ctx, NewContext(), failing)
	_ = cb.Execute(ctx, NewContext(), failing)

	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed (success must reset the count)", cb.State())
	}

	_ = cb.Execute(ctx, NewContext(), failing)
	if cb.State() != StateOpen {
		t.Errorf("state = %v, want open on 3rd consecutive failure", cb.State())
	}
}

func TestCircuitBreaker_OpenRejectsWithoutInvoking(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(BreakerConfig[int]{
		FailureThreshold: 2,
		BreakDuration:    time.Minute,
		Clock:            clock,
	})
	ctx := context.Background()

	_ = cb.Execute(ctx, NewContext(), failing)
	_ = cb.Execute(ctx, NewContext(), failing)

	clock.Advance(59 * time.Second)

	for i := 0; i < 10; i++ {
		out := cb.Execute(ctx, NewContext(), func(context.Context, *Context) Outcome[int] {
			t.Fatal("operation must not run while the circuit is open")
			return OK(0)
		})
		if !errors.Is(out.Err, ErrCircuitOpen) {
			t.Fatalf("outcome = %v, want ErrCircuitOpen", out.Err)
		}
	}
}

func TestCircuitBreaker_HalfOpenTrialSuccessCloses(t *testing.T) {
	clock := newFakeClock()
	var resets int
	cb := NewCircuitBreaker(BreakerConfig[int]{
		FailureThreshold: 2,
		BreakDuration:    time.Minute,
		Clock:            clock,
		OnReset:          func() { resets++ },
	})
	ctx := context.Background()

	_ = cb.Execute(ctx, NewContext(), failing)
	_ = cb.Execute(ctx, NewContext(), failing)

	clock.Advance(time.Minute)

	out := cb.Execute(ctx, NewContext(), succeeding)
	if !out.Success() {
		t.Fatalf("trial outcome = %v, want success", out.Err)
	}
	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed after trial success", cb.State())
	}
	if resets != 1 {
		t.Errorf("OnReset fired %d times, want 1", resets)
	}

	// Counters were reset: two fresh failures are needed to open again.
	_ = cb.Execute(ctx, NewContext(), failing)
	if cb.State() != StateClosed {
		t.Error("one failure after reset should not open the circuit")
	}
}

func TestCircuitBreaker_HalfOpenTrialFailureReopens(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(BreakerConfig[int]{
		FailureThreshold: 1,
		BreakDuration:    time.Minute,
		Clock:            clock,
	})
	ctx := context.Background()

	_ = cb.Execute(ctx, NewContext(), failing)
	clock.Advance(time.Minute)

	out := cb.Execute(ctx, NewContext(), failing)
	if out.Err != errService {
		t.Fatalf("trial outcome = %v, want inner fault", out.Err)
	}
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open after trial failure", cb.State())
	}

	// The full break duration restarts from the failed trial.
	clock.Advance(59 * time.Second)
	out = cb.Execute(ctx, NewContext(), succeeding)
	if !errors.Is(out.Err, ErrCircuitOpen) {
		t.Errorf("outcome = %v, want ErrCircuitOpen before cooldown restarts", out.Err)
	}

	clock.Advance(time.Second)
	out = cb.Execute(ctx, NewContext(), succeeding)
	if !out.Success() {
		t.Errorf("outcome = %v, want trial admitted after restarted cooldown", out.Err)
	}
}

func TestCircuitBreaker_SingleTrialUnderConcurrency(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(BreakerConfig[int]{
		FailureThreshold: 1,
		BreakDuration:    time.Minute,
		Clock:            clock,
	})
	ctx := context.Background()

	_ = cb.Execute(ctx, NewContext(), failing)
	clock.Advance(time.Minute)

	const callers = 16
	release := make(chan struct{})
	rejections := make(chan struct{}, callers)

	var mu sync.Mutex
	admitted := 0

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := cb.Execute(ctx, NewContext(), func(context.Context, *Context) Outcome[int] {
				<-release
				return OK(1)
			})
			if errors.Is(out.Err, ErrCircuitOpen) {
				rejections <- struct{}{}
				return
			}
			mu.Lock()
			admitted++
			mu.Unlock()
		}()
	}

	// Hold the trial in flight until every other caller has been turned
	// away, then let it finish.
	for i := 0; i < callers-1; i++ {
		select {
		case <-rejections:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for concurrent rejections")
		}
	}
	close(release)
	wg.Wait()

	if admitted != 1 {
		t.Errorf("admitted = %d, want exactly 1 trial through an expired cooldown", admitted)
	}
	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed after successful trial", cb.State())
	}
}

func TestCircuitBreaker_UnhandledFaultDoesNotCount(t *testing.T) {
	handled := errors.New("handled")
	cb := NewCircuitBreaker(BreakerConfig[int]{
		FailureThreshold: 2,
		BreakDuration:    time.Minute,
		Handle:           []Predicate[int]{HandleErrIs[int](handled)},
	})
	ctx := context.Background()

	other := errors.New("other")
	for i := 0; i < 5; i++ {
		out := cb.Execute(ctx, NewContext(), func(context.Context, *Context) Outcome[int] {
			return Fault[int](other)
		})
		if out.Err != other {
			t.Fatalf("outcome = %v, want unhandled fault passed through", out.Err)
		}
	}

	if cb.State() != StateClosed {
		t.Errorf("state = %v; unhandled faults must not trip the breaker", cb.State())
	}
}

func TestCircuitBreaker_IsolateAndReset(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(BreakerConfig[int]{
		FailureThreshold: 5,
		BreakDuration:    time.Second,
		Clock:            clock,
	})
	ctx := context.Background()

	cb.Isolate()
	if cb.State() != StateIsolated {
		t.Fatalf("state = %v, want isolated", cb.State())
	}

	// Cooldowns never release an isolated breaker.
	clock.Advance(time.Hour)
	out := cb.Execute(ctx, NewContext(), succeeding)
	if !errors.Is(out.Err, ErrCircuitOpen) {
		t.Errorf("outcome = %v, want isolation rejection", out.Err)
	}

	cb.Reset()
	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed after reset", cb.State())
	}
	out = cb.Execute(ctx, NewContext(), succeeding)
	if !out.Success() {
		t.Errorf("outcome = %v, want success after reset", out.Err)
	}
}

func TestCircuitBreaker_OnBreakCallback(t *testing.T) {
	var froms []State
	cb := NewCircuitBreaker(BreakerConfig[int]{
		FailureThreshold: 1,
		BreakDuration:    time.Minute,
		OnBreak:          func(from State) { froms = append(froms, from) },
	})

	_ = cb.Execute(context.Background(), NewContext(), failing)

	if len(froms) != 1 || froms[0] != StateClosed {
		t.Errorf("OnBreak froms = %v, want [closed]", froms)
	}
}

func TestState_String(t *testing.T) {
	cases := map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		StateIsolated: "isolated",
		State(99):     "unknown",
	}
	for s, want := range cases {
		if s.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), s.String(), want)
		}
	}
}

func TestCircuitBreaker_CountsTracksConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig[int]{FailureThreshold: 5})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, NewContext(), failing)
	}
	if c := cb.Counts(); c.ConsecutiveFailures != 3 {
		t.Errorf("ConsecutiveFailures = %d, want 3", c.ConsecutiveFailures)
	}

	_ = cb.Execute(ctx, NewContext(), succeeding)
	if c := cb.Counts(); c.ConsecutiveFailures != 0 {
		t.Errorf("ConsecutiveFailures after success = %d, want 0", c.ConsecutiveFailures)
	}
}

func TestCircuitBreaker_PanicDuringTrialSettlesBreaker(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(BreakerConfig[int]{
		FailureThreshold: 1,
		BreakDuration:    time.Minute,
		Clock:            clock,
	})
	ctx := context.Background()

	_ = cb.Execute(ctx, NewContext(), failing)
	clock.Advance(time.Minute)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("the operation's panic must reach the caller")
			}
		}()
		_ = cb.Execute(ctx, NewContext(), func(context.Context, *Context) Outcome[int] {
			panic("kaboom")
		})
	}()

	if got := cb.State(); got != StateOpen {
		t.Fatalf("state after panicking trial = %v, want open", got)
	}

	// The trial slot must be free again: after another cooldown a clean
	// trial closes the circuit.
	clock.Advance(time.Minute)
	out := cb.Execute(ctx, NewContext(), succeeding)
	if !out.Success() || cb.State() != StateClosed {
		t.Fatalf("recovery trial = (%v, state %v), want success and closed", out.Err, cb.State())
	}
}
