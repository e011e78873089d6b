package policy

import (
	"sync"

	"github.com/google/uuid"
)

// Well-known execution context keys published by the built-in policies.
const (
	// KeyAttempts holds the number of retries performed so far (int).
	KeyAttempts = "guardrail.attempts"

	// KeyCacheKey holds the cache key computed for this execution (string).
	KeyCacheKey = "guardrail.cache_key"
)

// Context is a mutable key/value bag threaded by reference through every
// policy in a pipeline. Policies use it to share cross-policy data (retry
// attempt counts, cache keys) without global state. Keys are unique and
// iteration preserves insertion order.
type Context struct {
	mu     sync.Mutex
	id     string
	order  []string
	values map[string]any
}

// NewContext creates an empty execution context with a fresh correlation ID.
func NewContext() *Context {
	return &Context{
		id:     uuid.NewString(),
		values: make(map[string]any),
	}
}

// NewContextWithID creates an empty execution context with the given
// correlation ID, for callers that propagate IDs from an outer system.
func NewContextWithID(id string) *Context {
	ec := NewContext()
	ec.id = id
	return ec
}

// CorrelationID returns the identifier tying together every policy event of
// one pipeline execution.
func (ec *Context) CorrelationID() string {
	return ec.id
}

// Set stores a value under key, replacing any previous value. Insertion
// order of first Set is preserved for Keys.
func (ec *Context) Set(key string, value any) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if _, ok := ec.values[key]; !ok {
		ec.order = append(ec.order, key)
	}
	ec.values[key] = value
}

// Get retrieves the value stored under key.
func (ec *Context) Get(key string) (any, bool) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	v, ok := ec.values[key]
	return v, ok
}

// Delete removes key from the bag. Idempotent.
func (ec *Context) Delete(key string) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if _, ok := ec.values[key]; !ok {
		return
	}
	delete(ec.values, key)
	for i, k := range ec.order {
		if k == key {
			ec.order = append(ec.order[:i], ec.order[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (ec *Context) Keys() []string {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	keys := make([]string, len(ec.order))
	copy(keys, ec.order)
	return keys
}

// Attempts returns the retry attempt count recorded under KeyAttempts, or
// zero when no retry policy has run.
func (ec *Context) Attempts() int {
	v, ok := ec.Get(KeyAttempts)
	if !ok {
		return 0
	}
	n, _ := v.(int)
	return n
}
