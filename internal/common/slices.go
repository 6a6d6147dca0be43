// Package common holds small generic helpers shared across packages.
package common

// First returns the first element of the slice and true, or the zero value and false if empty.
func First[S ~[]E, E any](s S) (E, bool) {
	if len(s) == 0 {
		var zero E
		return zero, false
	}

	return s[0], true
}

// Head returns at most the first n elements of s.
func Head[S ~[]E, E any](s S, n int) S {
	if len(s) > n {
		return s[:n]
	}

	return s
}
