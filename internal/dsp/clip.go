package dsp

// Clip8b clips v to the range [0, 255].
func Clip8b(v int) uint8 {
	if uint(v) <= 255 {
		return uint8(v)
	}
	// v>>63 is 0 for positive values and -1 for negative ones.
	return uint8(^(v >> 63) & 255)
}

// Clip returns v clamped to [lo, hi].
func Clip(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
