package store

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-memory Store. Expired entries are removed lazily on read;
// there is no background sweeper.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
}

type entry struct {
	value     []byte
	expiresAt time.Time
	sliding   time.Duration // zero for absolute expiry
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithNow overrides the store's time source, for tests.
func WithNow(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the value for key, or (nil, false) on miss or expiry.
// Accessing a sliding entry pushes its expiry out by the sliding window.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if now.After(e.expiresAt) {
		delete(m.entries, key)
		return nil, false
	}
	if e.sliding > 0 {
		e.expiresAt = now.Add(e.sliding)
	}
	return e.value, true
}

// Set stores value under key. A non-positive expiry stores nothing.
func (m *Memory) Set(_ context.Context, key string, value []byte, exp Expiry) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if exp.After <= 0 {
		return nil
	}

	e := &entry{
		value:     value,
		expiresAt: m.now().Add(exp.After),
	}
	if exp.Sliding {
		e.sliding = exp.After
	}

	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

// Delete removes key. Idempotent.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of entries currently held, including any that
// expired but were not read since.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Ensure Memory implements Store.
var _ Store = (*Memory)(nil)
