package policy

import "errors"

// Predicate reports whether an outcome counts as handled by a policy.
type Predicate[T any] func(Outcome[T]) bool

// Classifier is an ordered set of predicates combined with logical OR.
// Built once at policy construction and never mutated afterwards.
type Classifier[T any] struct {
	predicates []Predicate[T]
}

// NewClassifier builds a classifier from the given predicates. With no
// predicates, every fault (non-nil Err) is handled and successes are not;
// cancellation is excluded so callers must opt in to retrying or falling
// back on their own context's cancellation.
func NewClassifier[T any](predicates ...Predicate[T]) Classifier[T] {
	if len(predicates) == 0 {
		predicates = []Predicate[T]{HandleFaults[T]()}
	}
	owned := make([]Predicate[T], len(predicates))
	copy(owned, predicates)
	return Classifier[T]{predicates: owned}
}

// Handles reports whether any predicate matches the outcome.
func (c Classifier[T]) Handles(o Outcome[T]) bool {
	for _, p := range c.predicates {
		if p(o) {
			return true
		}
	}
	return false
}

// HandleFaults matches any faulted outcome except cancellation.
func HandleFaults[T any]() Predicate[T] {
	return func(o Outcome[T]) bool {
		return o.Err != nil && !IsCancellation(o.Err)
	}
}

// HandleErrIs matches faults for which errors.Is(err, target) holds.
func HandleErrIs[T any](target error) Predicate[T] {
	return func(o Outcome[T]) bool {
		return o.Err != nil && errors.Is(o.Err, target)
	}
}

// HandleErrAs matches faults assignable to the error type E.
func HandleErrAs[T any, E error]() Predicate[T] {
	return func(o Outcome[T]) bool {
		var target E
		return o.Err != nil && errors.As(o.Err, &target)
	}
}

// HandleResult matches successful outcomes whose value satisfies match.
// This lets policies treat in-band failure values (e.g. an HTTP 500 result)
// as faults.
func HandleResult[T any](match func(T) bool) Predicate[T] {
	return func(o Outcome[T]) bool {
		return o.Err == nil && match(o.Value)
	}
}
