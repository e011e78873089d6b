package policy

import "time"

// windowBuckets is the number of fixed buckets the sampling window is cut
// into. Fixed buckets bound memory and are rotated lazily on record.
const windowBuckets = 10

// WindowBreakerConfig configures an advanced circuit breaker that trips on
// the failure ratio observed over a rolling sampling window, instead of a
// consecutive-failure count.
type WindowBreakerConfig[T any] struct {
	// FailureRatio in [0,1] opens the circuit when the windowed failure
	// fraction meets or exceeds it. Default: 0.5.
	FailureRatio float64

	// SamplingWindow is the rolling window duration. Default: 30 seconds.
	SamplingWindow time.Duration

	// MinimumThroughput is the least number of calls that must land in the
	// window before the ratio is acted on. Default: 10.
	MinimumThroughput int

	// BreakDuration is how long the circuit stays open. Default: 30s.
	BreakDuration time.Duration

	// Handle decides which outcomes count as failures.
	Handle []Predicate[T]

	OnBreak    func(from State)
	OnReset    func()
	OnHalfOpen func()

	Clock Clock
}

// NewWindowBreaker creates an advanced circuit breaker. It shares the
// closed/open/half-open machine of NewCircuitBreaker; only the trip
// decision differs.
func NewWindowBreaker[T any](config WindowBreakerConfig[T]) *CircuitBreaker[T] {
	if config.FailureRatio <= 0 || config.FailureRatio > 1 {
		config.FailureRatio = 0.5
	}
	if config.SamplingWindow <= 0 {
		config.SamplingWindow = 30 * time.Second
	}
	if config.MinimumThroughput <= 0 {
		config.MinimumThroughput = 10
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
		trip: &windowTripper{
			ratio:     config.FailureRatio,
			minCalls:  config.MinimumThroughput,
			bucketLen: config.SamplingWindow / windowBuckets,
		},
	}
}

// windowTripper keeps success/failure counts in fixed time buckets covering
// the sampling window. Buckets older than the window are zeroed lazily as
// the clock advances; no background timers.
type windowTripper struct {
	ratio     float64
	minCalls  int
	bucketLen time.Duration

	buckets [windowBuckets]bucket
	epoch   time.Time // start of bucket index 0's current cycle
	started bool
	cursor  int64 // absolute bucket number of the latest sample
}

type bucket struct {
	successes int
	failures  int
}

func (t *windowTripper) recordSuccess(now time.Time) {
	t.bucketAt(now).successes++
}

func (t *windowTripper) recordFailure(now time.Time) {
	t.bucketAt(now).failures++
}

// bucketAt rotates stale buckets forward to now and returns the live one.
func (t *windowTripper) bucketAt(now time.Time) *bucket {
	if !t.started {
		t.started = true
		t.epoch = now
	}

	abs := int64(now.Sub(t.epoch) / t.bucketLen)
	if abs > t.cursor {
		// Zero every bucket the clock skipped over, capped at one full
		// rotation.
		steps := abs - t.cursor
		if steps > windowBuckets {
			steps = windowBuckets
		}
		for i := int64(1); i <= steps; i++ {
			t.buckets[(t.cursor+i)%windowBuckets] = bucket{}
		}
		t.cursor = abs
	}
	return &t.buckets[abs%windowBuckets]
}

func (t *windowTripper) shouldTrip(now time.Time) bool {
	c := t.counts(now)
	total := c.Successes + c.Failures
	if total < t.minCalls {
		return false
	}
	return float64(c.Failures)/float64(total) >= t.ratio
}

func (t *windowTripper) counts(now time.Time) BreakerCounts {
	// Rotate first so expired samples don't count.
	t.bucketAt(now)

	var c BreakerCounts
	for _, b := range t.buckets {
		c.Successes += b.successes
		c.Failures += b.failures
	}
	return c
}

func (t *windowTripper) reset() {
	t.buckets = [windowBuckets]bucket{}
	t.started = false
	t.cursor = 0
}
