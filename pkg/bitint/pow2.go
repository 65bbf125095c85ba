// SPDX-License-Identifier: MIT

/*
Package bitint provides the power-of-two helpers used for FFT sizing.

FFT plans in this module are only built for power-of-two lengths: analysis
frames are validated with IsPowerOfTwo, and the zero-padded buffers used for
FFT autocorrelation are sized with NextPowerOfTwo so that the circular
correlation never wraps into the linear one.

	padded := bitint.NextPowerOfTwo(2 * frameSize) // 2048 -> 4096
	ok := bitint.IsPowerOfTwo(fftSize)

NextPowerOfTwo relies on bits.Len of (size-1): for an exact power of two
the subtraction clears the top bit, so the input is returned unchanged
instead of doubled.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size. Non-positive
// sizes return 1.
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

// IsPowerOfTwo reports whether n is a positive power of 2. A power of two
// has a single set bit, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns the base-2 logarithm of a power of two, or -1 when n is not
// a power of two.
func Log2(n int) int {
	if !IsPowerOfTwo(n) {
		return -1
	}
	return bits.TrailingZeros(uint(n))
}
