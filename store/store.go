package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for store operations.
var (
	ErrNilStore   = errors.New("store: store is nil")
	ErrInvalidKey = errors.New("store: key is invalid")
	ErrKeyTooLong = errors.New("store: key exceeds max length")
)

// Expiry describes when a cached entry stops being served.
type Expiry struct {
	// After is the entry lifetime. Zero or negative disables storing.
	After time.Duration

	// Sliding extends the expiry by After on every access instead of
	// expiring at a fixed instant.
	Sliding bool
}

// Absolute expires the entry a fixed duration after it was stored.
func Absolute(d time.Duration) Expiry { return Expiry{After: d} }

// SlidingWindow expires the entry d after its most recent access.
func SlidingWindow(d time.Duration) Expiry { return Expiry{After: d, Sliding: true} }

// Store is the external key/value store the cache policy delegates to.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Get never errors; it returns (nil, false) on miss or expiry. A hit on
//   a sliding entry extends its expiry.
// - Set with a non-positive expiry is a no-op.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, exp Expiry) error
	Delete(ctx context.Context, key string) error
}

// ValidateKey checks that a key is usable for caching.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
