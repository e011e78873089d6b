package policy

import (
	"math"
	"math/rand/v2"
	"time"
)

// DelayFunc computes the wait before retry attempt number attempt (1-based).
type DelayFunc func(attempt int) time.Duration

// NoDelay retries immediately.
func NoDelay() DelayFunc {
	return func(int) time.Duration { return 0 }
}

// ConstantDelay waits the same duration before every retry.
func ConstantDelay(d time.Duration) DelayFunc {
	return func(int) time.Duration { return d }
}

// LinearBackoff waits step, 2*step, 3*step, ...
func LinearBackoff(step time.Duration) DelayFunc {
	return func(attempt int) time.Duration {
		return step * time.Duration(attempt)
	}
}

// ExponentialBackoff waits initial * multiplier^(attempt-1), capped at max.
// A multiplier <= 1 falls back to 2; max <= 0 means uncapped.
func ExponentialBackoff(initial time.Duration, multiplier float64, max time.Duration) DelayFunc {
	if multiplier <= 1 {
		multiplier = 2.0
	}
	return func(attempt int) time.Duration {
		d := time.Duration(float64(initial) * math.Pow(multiplier, float64(attempt-1)))
		if max > 0 && d > max {
			d = max
		}
		return d
	}
}

// WithJitter adds up to 25% random variance to another delay function to
// spread out synchronized retry storms.
func WithJitter(fn DelayFunc) DelayFunc {
	return func(attempt int) time.Duration {
		d := fn(attempt)
		if d <= 0 {
			return d
		}
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		return d + time.Duration(rand.Int64N(int64(d/4)+1))
	}
}
