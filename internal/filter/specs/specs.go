// Package specs implements the Specification pattern for filter
// predicates. Filter evaluation is pure and synchronous, so unlike
// I/O-bound domain checks there is no context threading; keep individual
// specifications small and compose for complexity.
package specs

// Specification is a composable boolean predicate over a domain value.
type Specification[T any] interface {
	IsSatisfiedBy(v T) bool
	And(other Specification[T]) Specification[T]
	Or(other Specification[T]) Specification[T]
	Not() Specification[T]
}

type specFunc[T any] func(v T) bool

func (f specFunc[T]) IsSatisfiedBy(v T) bool { return f(v) }

func (f specFunc[T]) And(other Specification[T]) Specification[T] {
	return specFunc[T](func(v T) bool {
		return f(v) && other.IsSatisfiedBy(v)
	})
}

func (f specFunc[T]) Or(other Specification[T]) Specification[T] {
	return specFunc[T](func(v T) bool {
		return f(v) || other.IsSatisfiedBy(v)
	})
}

func (f specFunc[T]) Not() Specification[T] {
	return specFunc[T](func(v T) bool { return !f(v) })
}

// New constructs a Specification from a predicate.
func New[T any](fn func(v T) bool) Specification[T] { return specFunc[T](fn) }

// All returns a specification satisfied only when every given spec is.
// With no specs it is always satisfied (open state).
func All[T any](ss ...Specification[T]) Specification[T] {
	return New(func(v T) bool {
		for _, s := range ss {
			if !s.IsSatisfiedBy(v) {
				return false
			}
		}
		return true
	})
}
