package tlsf

import "math/bits"

// flsUintptr returns the zero-based index of the most significant set bit
// of x (find-last-set), or -1 if x == 0. math/bits.Len already dispatches
// to the right width intrinsic for the platform's native uint, which has
// the same width as uintptr on every architecture Go targets.
func flsUintptr(x uintptr) int {
	if x == 0 {
		return -1
	}

	return bits.Len(uint(x)) - 1
}

// ffs32 returns the zero-based index of the least significant set bit of
// x (find-first-set), or -1 if x == 0.
func ffs32(x uint32) int {
	if x == 0 {
		return -1
	}

	return bits.TrailingZeros32(x)
}
