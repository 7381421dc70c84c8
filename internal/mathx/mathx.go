// Package mathx holds small generic numeric helpers.
package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Abs for signed integers and floats. Widen before calling when the minimum
// value of T may occur.
func Abs[T constraints.Signed | constraints.Float](x T) T {
	if x < 0 {
		return -x
	}
	return x
}

// Translate maps v linearly from [inFrom, inTo] onto [outFrom, outTo]
// without clamping.
func Translate[T constraints.Float](v, inFrom, inTo, outFrom, outTo T) T {
	return outFrom + (v-inFrom)/(inTo-inFrom)*(outTo-outFrom)
}
