// Package utils holds small pointer helpers for optional columns and fields.
package utils

import "strings"

func Ptr[T any](v T) *T {
	return &v
}

// Copy returns a new pointer to a copy of *v, nil stays nil.
func Copy[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func OrZero[T comparable](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}

// Equal reports whether both are nil or both point at equal values.
func Equal[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// StringOrNil trims s and returns nil when nothing is left.
func StringOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
