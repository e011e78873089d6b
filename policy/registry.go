package policy

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry errors.
var (
	ErrNotRegistered     = errors.New("policy: no policy registered under name")
	ErrAlreadyRegistered = errors.New("policy: name already registered")
)

// Registry maps names to pre-built composed policies so call sites can look
// them up by string key. It is a plain value to be passed explicitly; the
// package keeps no global registry.
type Registry[T any] struct {
	mu       sync.RWMutex
	policies map[string]Policy[T]
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{policies: make(map[string]Policy[T])}
}

// Register associates name with p. Registering an existing name fails.
func (r *Registry[T]) Register(name string, p Policy[T]) error {
	if name == "" {
		return errors.New("policy: empty registry name")
	}
	if p == nil {
		return fmt.Errorf("policy: nil policy for %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.policies[name]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyRegistered, name)
	}
	r.policies[name] = p
	return nil
}

// Get returns the policy registered under name.
func (r *Registry[T]) Get(name string) (Policy[T], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}
	return p, nil
}

// Names returns the registered names, sorted.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
