package policy

import (
	"context"
	"sync"
	"time"
)

// State is the circuit breaker state.
type State int

const (
	// StateClosed means calls flow through normally.
	StateClosed State = iota
	// StateOpen means calls are rejected without invoking the operation.
	StateOpen
	// StateHalfOpen means a single trial call is probing for recovery.
	StateHalfOpen
	// StateIsolated means the breaker was forced open manually and stays
	// open until Reset.
	StateIsolated
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	case StateIsolated:
		return "isolated"
	default:
		return "unknown"
	}
}

// tripper decides when a closed breaker should open. Implementations are
// called under the breaker's lock.
type tripper interface {
	recordSuccess(now time.Time)
	recordFailure(now time.Time)
	shouldTrip(now time.Time) bool
	counts(now time.Time) BreakerCounts
	reset()
}

// BreakerCounts is a point-in-time snapshot of the breaker's failure
// accounting. The basic variant fills ConsecutiveFailures; the windowed
// variant fills Successes and Failures over the sampling window.
type BreakerCounts struct {
	ConsecutiveFailures int
	Successes           int
	Failures            int
}

// consecutiveTripper trips after n handled failures in a row.
type consecutiveTripper struct {
	threshold int
	failures  int
}

func (t *consecutiveTripper) recordSuccess(time.Time) { t.failures = 0 }
func (t *consecutiveTripper) recordFailure(time.Time) { t.failures++ }
func (t *consecutiveTripper) shouldTrip(time.Time) bool {
	return t.failures >= t.threshold
}
func (t *consecutiveTripper) counts(time.Time) BreakerCounts {
	return BreakerCounts{ConsecutiveFailures: t.failures}
}
func (t *consecutiveTripper) reset() { t.failures = 0 }

// BreakerConfig configures a basic (consecutive-failure) circuit breaker.
type BreakerConfig[T any] struct {
	// FailureThreshold is the number of consecutive handled failures that
	// opens the circuit. Default: 5.
	FailureThreshold int

	// BreakDuration is how long the circuit stays open before a trial call
	// is allowed. Default: 30 seconds.
	BreakDuration time.Duration

	// Handle decides which outcomes count as failures. Default: any fault
	// except cancellation.
	Handle []Predicate[T]

	// OnBreak is called when the circuit opens, with the state it opened
	// from. OnReset is called on transition to closed, OnHalfOpen when a
	// trial is admitted. All fire synchronously under the breaker lock;
	// keep them fast.
	OnBreak    func(from State)
	OnReset    func()
	OnHalfOpen func()

	// Clock overrides the time source. Default: the system clock.
	Clock Clock
}

// CircuitBreaker gates an operation behind a closed/open/half-open state
// machine so a failing dependency gets a cooldown instead of a hammering.
type CircuitBreaker[T any] struct {
	breakDuration time.Duration
	classifier    Classifier[T]
	clock         Clock
	onBreak       func(State)
	onReset       func()
	onHalfOpen    func()

	mu            sync.Mutex
	state         State
	trip          tripper
	openedAt      time.Time
	trialInFlight bool
}

// NewCircuitBreaker creates a basic circuit breaker.
func NewCircuitBreaker[T any](config BreakerConfig[T]) *CircuitBreaker[T] {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.BreakDuration <= 0 {
		config.BreakDuration = 30 * time.Second
	}
	if config.Clock == nil {
		config.Clock = SystemClock()
	}
	return &CircuitBreaker[T]{
		breakDuration: config.BreakDuration,
		classifier:    NewClassifier(config.Handle...),
		clock:         config.Clock,
		onBreak:       config.OnBreak,
		onReset:       config.OnReset,
		onHalfOpen:    config.OnHalfOpen,
		state:         StateClosed,
		trip:          &consecutiveTripper{threshold: config.FailureThreshold},
	}
}

// Execute consults the breaker state, invokes op if admitted, and records
// the outcome. Rejections carry ErrCircuitOpen (or ErrIsolated).
func (cb *CircuitBreaker[T]) Execute(ctx context.Context, ec *Context, op Operation[T]) Outcome[T] {
	trial, err := cb.admit()
	if err != nil {
		return Fault[T](err)
	}

	// A panicking operation is booked as a failure on the way out, so a
	// half-open trial cannot leave the breaker wedged. The panic itself
	// still propagates to the caller.
	recorded := false
	defer func() {
		if !recorded {
			cb.settle(true, trial)
		}
	}()

	out := op(ctx, ec)
	recorded = true
	cb.record(out, trial)
	return out
}

// admit decides under the lock whether a call may proceed. trial marks the
// single half-open probe; its result settles the next state.
func (cb *CircuitBreaker[T]) admit() (trial bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.clock.Now()

	switch cb.state {
	case StateIsolated:
		return false, ErrIsolated

	case StateOpen:
		if now.Sub(cb.openedAt) < cb.breakDuration {
			return false, ErrCircuitOpen
		}
		// Cooldown expired: exactly this caller becomes the trial, even
		// under concurrent contention, because the transition happens
		// while we still hold the lock.
		cb.toHalfOpenLocked()
		cb.trialInFlight = true
		return true, nil

	case StateHalfOpen:
		if cb.trialInFlight {
			return false, ErrCircuitOpen
		}
		cb.trialInFlight = true
		return true, nil

	default: // StateClosed
		return false, nil
	}
}

// record applies the transition rules for a completed call. An outcome the
// classifier does not handle is not the failure mode this breaker guards
// against; book it as a success. Handled in-band result values count as
// failures just like raised faults.
func (cb *CircuitBreaker[T]) record(out Outcome[T], trial bool) {
	cb.settle(cb.classifier.Handles(out), trial)
}

func (cb *CircuitBreaker[T]) settle(failure, trial bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.clock.Now()

	if trial {
		cb.trialInFlight = false
		if cb.state != StateHalfOpen {
			// Isolate or Reset raced the trial; their decision wins.
			return
		}
		if failure {
			cb.toOpenLocked(now)
		} else {
			cb.toClosedLocked()
		}
		return
	}

	if cb.state != StateClosed {
		// A call admitted while closed finished after the state moved on
		// (another caller tripped the breaker, or Isolate ran). Its sample
		// no longer matters.
		return
	}

	if failure {
		cb.trip.recordFailure(now)
		if cb.trip.shouldTrip(now) {
			cb.toOpenLocked(now)
		}
	} else {
		cb.trip.recordSuccess(now)
	}
}

func (cb *CircuitBreaker[T]) toOpenLocked(now time.Time) {
	from := cb.state
	cb.state = StateOpen
	cb.openedAt = now
	if cb.onBreak != nil {
		cb.onBreak(from)
	}
}

func (cb *CircuitBreaker[T]) toHalfOpenLocked() {
	cb.state = StateHalfOpen
	if cb.onHalfOpen != nil {
		cb.onHalfOpen()
	}
}

func (cb *CircuitBreaker[T]) toClosedLocked() {
	cb.state = StateClosed
	cb.trip.reset()
	if cb.onReset != nil {
		cb.onReset()
	}
}

// State returns the current state. An expired open cooldown still reads as
// open; the transition to half-open happens on the next admission attempt.
func (cb *CircuitBreaker[T]) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Counts returns a snapshot of the failure accounting the trip decision is
// based on. Windowed samples older than the sampling window are excluded.
func (cb *CircuitBreaker[T]) Counts() BreakerCounts {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.trip.counts(cb.clock.Now())
}

// Isolate forces the circuit open until Reset is called, regardless of
// outcomes or cooldowns. Used for operational kill switches.
func (cb *CircuitBreaker[T]) Isolate() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateIsolated
}

// Reset forces the circuit closed and clears all counters.
func (cb *CircuitBreaker[T]) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.trialInFlight = false
	cb.toClosedLocked()
}
