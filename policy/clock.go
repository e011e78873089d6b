package policy

import "time"

// Clock supplies the current time to policies that do lazy time arithmetic
// (breaker cooldowns, window rotation, token refill). The default system
// clock carries Go's monotonic reading, so elapsed-time math is immune to
// wall-clock jumps. Swap it out in tests to avoid sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the process's monotonic system clock.
func SystemClock() Clock { return systemClock{} }
