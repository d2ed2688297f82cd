package format

// Align8 rounds v up to the next multiple of AllocAlign. The result is
// 64-bit: values near the uint32 ceiling round past it rather than
// wrapping to 0, so allocation size checks see the true magnitude.
func Align8(v uint32) uint64 {
	return (uint64(v) + AllocAlignMask) &^ uint64(AllocAlignMask)
}

// AlignTo rounds v up to the next multiple of a. Cacheline values on media
// are powers of two in practice, but a generic round-up keeps a non-power
// value from corrupting the walk. a values of 0 and 1 leave v unchanged.
func AlignTo(v, a uint32) uint32 {
	if a <= 1 {
		return v
	}
	if a&(a-1) == 0 {
		return (v + a - 1) &^ (a - 1)
	}
	return (v + a - 1) / a * a
}
