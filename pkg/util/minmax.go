package util

import "golang.org/x/exp/constraints"

// MaxOf returns the largest value in vals, or zero when empty.
func MaxOf[T constraints.Ordered](vals ...T) T {
	var m T
	for i, v := range vals {
		if i == 0 || v > m {
			m = v
		}
	}
	return m
}

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
