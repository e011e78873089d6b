package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/guardrail/store"
)

// Codec converts values to and from the byte form the store holds.
type Codec[T any] interface {
	Marshal(v T) ([]byte, error)
	Unmarshal(data []byte) (T, error)
}

// JSONCodec encodes values with encoding/json.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Marshal(v T) ([]byte, error) { return json.Marshal(v) }

func (JSONCodec[T]) Unmarshal(data []byte) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}

// CacheConfig configures a cache policy.
type CacheConfig[T any] struct {
	// Store is the external key/value store. Required.
	Store store.Store

	// Key computes the cache key for an execution from its context. An
	// empty key bypasses the cache for that call. Required.
	Key func(ec *Context) string

	// Expiry is the TTL policy for stored entries (absolute or sliding).
	// Default: absolute, 5 minutes.
	Expiry store.Expiry

	// Codec serializes values. Default: JSONCodec.
	Codec Codec[T]

	// SingleFlight collapses concurrent misses on the same key into one
	// inner invocation; the other callers share its outcome.
	SingleFlight bool

	// OnCacheError observes store and codec failures. They never fail the
	// call; the policy degrades to a miss.
	OnCacheError func(err error)
}

// Cache memoizes successful outcomes in an external store, keyed by a
// request fingerprint.
type Cache[T any] struct {
	store        store.Store
	key          func(*Context) string
	expiry       store.Expiry
	codec        Codec[T]
	onCacheError func(error)

	flight *singleflight.Group // nil unless SingleFlight
}

// NewCache creates a cache policy. Panics if Store or Key is missing, since
// the policy is inert without them.
func NewCache[T any](config CacheConfig[T]) *Cache[T] {
	if config.Store == nil {
		panic("policy: CacheConfig.Store is required")
	}
	if config.Key == nil {
		panic("policy: CacheConfig.Key is required")
	}
	if config.Expiry.After == 0 {
		config.Expiry = store.Absolute(5 * time.Minute)
	}
	if config.Codec == nil {
		config.Codec = JSONCodec[T]{}
	}
	c := &Cache[T]{
		store:        config.Store,
		key:          config.Key,
		expiry:       config.Expiry,
		codec:        config.Codec,
		onCacheError: config.OnCacheError,
	}
	if config.SingleFlight {
		c.flight = &singleflight.Group{}
	}
	return c
}

// Execute serves a fresh-enough cached value without invoking op; on a miss
// it invokes op and stores a successful outcome. The computed key is
// published under KeyCacheKey.
func (c *Cache[T]) Execute(ctx context.Context, ec *Context, op Operation[T]) Outcome[T] {
	key := c.key(ec)
	if key == "" {
		return op(ctx, ec)
	}
	if err := store.ValidateKey(key); err != nil {
		c.reportError(err)
		return op(ctx, ec)
	}
	ec.Set(KeyCacheKey, key)

	if out, ok := c.lookup(ctx, key); ok {
		return out
	}

	if c.flight == nil {
		return c.fill(ctx, ec, key, op)
	}

	// Collapse concurrent misses: one caller fills, the rest wait for its
	// outcome. Do() never returns an error here since fn never errors.
	v, _, _ := c.flight.Do(key, func() (any, error) {
		return c.fill(ctx, ec, key, op), nil
	})
	return v.(Outcome[T])
}

func (c *Cache[T]) lookup(ctx context.Context, key string) (Outcome[T], bool) {
	data, ok := c.store.Get(ctx, key)
	if !ok {
		return Outcome[T]{}, false
	}
	v, err := c.codec.Unmarshal(data)
	if err != nil {
		// Corrupt entry: drop it and treat as a miss.
		c.reportError(fmt.Errorf("policy: cache decode for %q: %w", key, err))
		_ = c.store.Delete(ctx, key)
		return Outcome[T]{}, false
	}
	return OK(v).handledBy("cache"), true
}

func (c *Cache[T]) fill(ctx context.Context, ec *Context, key string, op Operation[T]) Outcome[T] {
	out := op(ctx, ec)
	if !out.Success() {
		return out
	}

	data, err := c.codec.Marshal(out.Value)
	if err != nil {
		c.reportError(fmt.Errorf("policy: cache encode for %q: %w", key, err))
		return out
	}
	if err := c.store.Set(ctx, key, data, c.expiry); err != nil {
		c.reportError(fmt.Errorf("policy: cache store for %q: %w", key, err))
	}
	return out
}

func (c *Cache[T]) reportError(err error) {
	if c.onCacheError != nil {
		c.onCacheError(err)
	}
}

// FingerprintKey builds a Key function that fingerprints a fixed scope plus
// the value stored in the execution context under the given key. Executions
// without that key yield an empty key, which bypasses the cache rather than
// sharing one entry.
func FingerprintKey(scope, contextKey string) func(*Context) string {
	keyer := store.NewFingerprintKeyer()
	return func(ec *Context) string {
		input, ok := ec.Get(contextKey)
		if !ok {
			return ""
		}
		key, err := keyer.Key(scope, input)
		if err != nil {
			return ""
		}
		return key
	}
}
