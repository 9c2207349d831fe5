/*
Package bitint provides the integer helpers used when sizing analysis
frames: power-of-two checks for FFT sizes and frame counts for a hop
schedule.

Usage:

	// Round a requested frame size up to a valid FFT size
	size := bitint.NextPowerOfTwo(2000) // 2048

	// Reject configured sizes that the FFT cannot take
	ok := bitint.IsPowerOfTwo(size)

	// Number of frames a framer produces for n samples
	frames := bitint.FrameCount(n, 2048, 512)

----------------------------------------------------------------------

NextPowerOfTwo subtracts one before taking the bit length so that
exact powers of two map onto themselves:

	size = 8: bits.Len(7) = 3, 1 << 3 = 8
	size = 9: bits.Len(8) = 4, 1 << 4 = 16

Without the subtraction 8 would be doubled to 16.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
// Powers of 2 have exactly one bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns the exponent of a power of two, or -1 when n is not one.
func Log2(n int) int {
	if !IsPowerOfTwo(n) {
		return -1
	}
	return bits.TrailingZeros(uint(n))
}

// FrameCount returns how many frames of the given size fit into n samples
// when advancing by hop. Inputs shorter than one frame still count as a
// single zero-padded frame; an empty input has none.
func FrameCount(n, size, hop int) int {
	if n <= 0 || size <= 0 || hop <= 0 {
		return 0
	}
	if n < size {
		return 1
	}
	return 1 + (n-size)/hop
}
