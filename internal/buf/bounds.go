// Package buf contains overflow-safe offset arithmetic for walking
// structures that live in memory other processors can scribble on. Every
// position is an offset into a byte buffer with an explicit end bound,
// never an unconstrained address.
package buf

import "math"

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// MulOverflowSafe multiplies non-negative a and b, returning ok = false
// when the result would overflow int.
func MulOverflowSafe(a, b int) (int, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a < 0 || b < 0 {
		return 0, false
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// InRange reports whether the span [off, off+size) lies within
// [start, end), guarding the addition against wraparound. This mirrors the
// range check every partition walk performs before trusting a stored
// offset: off at or past start, off+size not wrapped, off+size at or
// before end.
func InRange(off, size, start, end int) bool {
	if off < start {
		return false
	}
	e, ok := AddOverflowSafe(off, size)
	if !ok {
		return false
	}
	return e <= end
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end], true
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n int) bool {
	_, ok := Slice(b, off, n)
	return ok
}
