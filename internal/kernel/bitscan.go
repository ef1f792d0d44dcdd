// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package kernel

import "math/bits"

// notFound is returned by the bit scans for a zero word.
const notFound = -1

// firstBitHigh returns the position of the most significant set bit of x,
// or notFound when x is zero.
func firstBitHigh(x uint32) int {
	if x == 0 {
		return notFound
	}
	return FlagBits - 1 - bits.LeadingZeros32(x)
}

// firstBitLow returns the position of the least significant set bit of x,
// or notFound when x is zero.
func firstBitLow(x uint32) int {
	if x == 0 {
		return notFound
	}
	return bits.TrailingZeros32(x)
}

// lowMask returns a word with the n lowest bits set, n in [0, 32].
func lowMask(n int) uint32 {
	if n >= FlagBits {
		return ^uint32(0)
	}
	return 1<<uint(n) - 1
}

// highMask returns a word with every bit at position from and above set,
// from in [0, 32].
func highMask(from int) uint32 {
	if from >= FlagBits {
		return 0
	}
	return ^uint32(0) << uint(from)
}
