package model

import (
	"golang.org/x/exp/constraints"
)

// Series is an ordered column of values, oldest first.
type Series[T constraints.Ordered] []T

// Min returns the smallest value of the series, or the zero value when it is empty.
func (s Series[T]) Min() T {
	var min T
	for i, v := range s {
		if i == 0 || v < min {
			min = v
		}
	}
	return min
}

// Max returns the largest value of the series, or the zero value when it is empty.
func (s Series[T]) Max() T {
	var max T
	for i, v := range s {
		if i == 0 || v > max {
			max = v
		}
	}
	return max
}

// Extent returns the smallest and the largest value of the series.
func (s Series[T]) Extent() (T, T) {
	return s.Min(), s.Max()
}
