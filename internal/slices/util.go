// Package slices provides generic utility functions for working with slices.
// These complement the standard library's slices package.
package slices

// Filter returns a new slice containing only the elements where f returns true.
func Filter[T any](src []T, f func(T) bool) []T {
	result := make([]T, 0, len(src))
	for _, v := range src {
		if f(v) {
			result = append(result, v)
		}
	}
	return result
}

// Any returns true if f returns true for any element.
func Any[T any](src []T, f func(T) bool) bool {
	for _, v := range src {
		if f(v) {
			return true
		}
	}
	return false
}

// All returns true if f returns true for all elements.
func All[T any](src []T, f func(T) bool) bool {
	for _, v := range src {
		if !f(v) {
			return false
		}
	}
	return true
}

// Find returns the first element where f returns true, or zero value if not found.
// The boolean return indicates whether a match was found.
func Find[T any](src []T, f func(T) bool) (T, bool) {
	for _, v := range src {
		if f(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Unique returns a new slice with duplicate elements removed.
// Preserves the order of first occurrence.
func Unique[T comparable](src []T) []T {
	seen := make(map[T]struct{})
	result := make([]T, 0, len(src))
	for _, v := range src {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			result = append(result, v)
		}
	}
	return result
}

// Difference returns elements in a that are not in b, in their original order.
func Difference[T comparable](a, b []T) []T {
	bSet := make(map[T]struct{}, len(b))
	for _, v := range b {
		bSet[v] = struct{}{}
	}
	var result []T
	for _, v := range a {
		if _, ok := bSet[v]; !ok {
			result = append(result, v)
		}
	}
	return result
}

// Count returns the number of elements where f returns true.
func Count[T any](src []T, f func(T) bool) int {
	count := 0
	for _, v := range src {
		if f(v) {
			count++
		}
	}
	return count
}
