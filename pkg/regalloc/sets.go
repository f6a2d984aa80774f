// Package regalloc implements the analyses behind register allocation:
// liveness at instruction and block granularity, live-range (web)
// construction, the interference graph and Chaitin/Briggs graph coloring.
package regalloc

import (
	"cmp"
	"slices"
)

// Set is a set of ordered values
type Set[T cmp.Ordered] map[T]struct{}

// VarSet is a set of variable names
type VarSet = Set[string]

// NewSet creates a set holding items
func NewSet[T cmp.Ordered](items ...T) Set[T] {
	s := make(Set[T], len(items))
	s.Add(items...)
	return s
}

// NewVarSet creates a set of variable names
func NewVarSet(vars ...string) VarSet {
	return NewSet(vars...)
}

// Add inserts items into the set
func (s Set[T]) Add(items ...T) {
	for _, it := range items {
		s[it] = struct{}{}
	}
}

// Remove deletes an item from the set
func (s Set[T]) Remove(it T) {
	delete(s, it)
}

// Contains reports whether it is in the set
func (s Set[T]) Contains(it T) bool {
	_, ok := s[it]
	return ok
}

// Copy returns an independent copy
func (s Set[T]) Copy() Set[T] {
	c := make(Set[T], len(s))
	for it := range s {
		c[it] = struct{}{}
	}
	return c
}

// Union returns s ∪ other
func (s Set[T]) Union(other Set[T]) Set[T] {
	u := s.Copy()
	for it := range other {
		u[it] = struct{}{}
	}
	return u
}

// Minus returns s − other
func (s Set[T]) Minus(other Set[T]) Set[T] {
	d := make(Set[T], len(s))
	for it := range s {
		if !other.Contains(it) {
			d[it] = struct{}{}
		}
	}
	return d
}

// Equal reports whether both sets hold the same items
func (s Set[T]) Equal(other Set[T]) bool {
	if len(s) != len(other) {
		return false
	}
	for it := range s {
		if !other.Contains(it) {
			return false
		}
	}
	return true
}

// Intersects reports whether the sets share at least one item
func (s Set[T]) Intersects(other Set[T]) bool {
	if len(other) < len(s) {
		s, other = other, s
	}
	for it := range s {
		if other.Contains(it) {
			return true
		}
	}
	return false
}

// Sorted returns the items in ascending order
func (s Set[T]) Sorted() []T {
	out := make([]T, 0, len(s))
	for it := range s {
		out = append(out, it)
	}
	slices.Sort(out)
	return out
}
