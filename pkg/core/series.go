package core

import (
	"golang.org/x/exp/constraints"
)

// Series is a time series of ordered values, oldest first
type Series[T constraints.Ordered] []T

// Values returns the underlying slice of values
func (s Series[T]) Values() []T {
	return s
}

// Length returns the number of values in the series
func (s Series[T]) Length() int {
	return len(s)
}

// Last returns the value at a specified position from the end
// position 0 is the last value, 1 is the second-to-last, etc.
func (s Series[T]) Last(position int) T {
	return s[len(s)-1-position]
}

// LastValues returns a slice with the last 'size' values
// If size exceeds the length, returns the entire series
func (s Series[T]) LastValues(size int) Series[T] {
	if l := len(s); l > size {
		return s[l-size:]
	}
	return s
}

// StrictMaxAt reports whether s[i] is strictly greater than every other value in s[from:to+1].
func (s Series[T]) StrictMaxAt(i, from, to int) bool {
	for j := from; j <= to; j++ {
		if j != i && s[j] >= s[i] {
			return false
		}
	}
	return true
}

// StrictMinAt reports whether s[i] is strictly lower than every other value in s[from:to+1].
func (s Series[T]) StrictMinAt(i, from, to int) bool {
	for j := from; j <= to; j++ {
		if j != i && s[j] <= s[i] {
			return false
		}
	}
	return true
}
