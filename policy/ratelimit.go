package policy

import (
	"context"
	"sync"
	"time"
)

// RateLimiterConfig configures a token-bucket rate limiter.
type RateLimiterConfig[T any] struct {
	// Permits is the number of calls refilled per Per. Default: 100.
	Permits int

	// Per is the refill period. Default: 1 second.
	Per time.Duration

	// Burst is the bucket capacity. Values below Permits are raised to
	// Permits (no extra burst by default).
	Burst int

	// Clock overrides the time source. Default: the system clock.
	Clock Clock
}

// RateLimiter admits calls from a token bucket and rejects the rest. It
// never queues; a caller that wants to wait out a rejection puts a Retry
// around it.
type RateLimiter[T any] struct {
	rate  float64 // tokens per nanosecond
	burst float64
	clock Clock

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter creates a rate limiter with a full bucket.
func NewRateLimiter[T any](config RateLimiterConfig[T]) *RateLimiter[T] {
	if config.Permits <= 0 {
		config.Permits = 100
	}
	if config.Per <= 0 {
		config.Per = time.Second
	}
	if config.Burst < config.Permits {
		config.Burst = config.Permits
	}
	if config.Clock == nil {
		config.Clock = SystemClock()
	}
	return &RateLimiter[T]{
		rate:       float64(config.Permits) / float64(config.Per),
		burst:      float64(config.Burst),
		clock:      config.Clock,
		tokens:     float64(config.Burst),
		lastRefill: config.Clock.Now(),
	}
}

// Execute consumes one token and invokes op, or rejects immediately with
// ErrRateLimited when the bucket is empty.
func (rl *RateLimiter[T]) Execute(ctx context.Context, ec *Context, op Operation[T]) Outcome[T] {
	if !rl.Allow() {
		return Fault[T](ErrRateLimited)
	}
	return op(ctx, ec)
}

// Allow refills the bucket for elapsed time and consumes one token if
// available. Refill and consumption are atomic with respect to concurrent
// callers.
func (rl *RateLimiter[T]) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked()
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// Tokens returns the number of tokens currently available.
func (rl *RateLimiter[T]) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillLocked()
	return rl.tokens
}

func (rl *RateLimiter[T]) refillLocked() {
	now := rl.clock.Now()
	elapsed := now.Sub(rl.lastRefill)
	rl.lastRefill = now

	rl.tokens += float64(elapsed) * rl.rate
	if rl.tokens > rl.burst {
		rl.tokens = rl.burst
	}
}
