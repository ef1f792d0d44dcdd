// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package kernel

// AllSimilar reports whether every flag in [anchor0, anchor1) is set, i.e.
// the whole interval can be interpolated between its anchors.
//
// Intervals inside one word cost a single masked compare; wider intervals
// are compared word by word against an all-ones pattern.
func AllSimilar(words []uint32, anchor0, anchor1 int) bool {
	for i := anchor0; i < anchor1; {
		w, bit := i/FlagBits, i%FlagBits
		n := min(FlagBits-bit, anchor1-i)
		mask := lowMask(n) << uint(bit)
		if words[w]&mask != mask {
			return false
		}
		i += n
	}
	return true
}

// FindLeftSource returns the left interpolation source of sample: the
// sample just right of the nearest break at or below sample-1, or anchor0
// when there is no break down to it. sample must be greater than anchor0.
//
//	      anchor0             sample-1  sample
//	         |                   |        |
//	flags:   1  1  0  1  1  1  1  1  ?  ?  ?
//	                  ^ left source
func FindLeftSource(words []uint32, sample, anchor0 int) int {
	pos := sample - 1
	w, bit := pos/FlagBits, pos%FlagBits

	// Flags above pos describe samples to the right; mark them similar so
	// the scan skips them.
	pack := words[w] | highMask(bit+1)
	for {
		if brk := firstBitHigh(^pack); brk != notFound {
			return max(w*FlagBits+brk+1, anchor0)
		}
		w--
		if w < 0 || (w+1)*FlagBits <= anchor0 {
			return anchor0
		}
		pack = words[w]
	}
}

// FindRightSource returns the right interpolation source of sample: the
// nearest break at or above sample, or anchor1 when there is none before it.
// sample must be less than anchor1.
func FindRightSource(words []uint32, sample, anchor1 int) int {
	w, bit := sample/FlagBits, sample%FlagBits

	// Flags below sample describe samples to the left.
	pack := words[w] | lowMask(bit)
	for {
		if brk := firstBitLow(^pack); brk != notFound {
			return min(w*FlagBits+brk, anchor1)
		}
		w++
		if w >= len(words) || w*FlagBits >= anchor1 {
			return anchor1
		}
		pack = words[w]
	}
}

// ResolveSources returns the interpolation sources of a sample strictly
// inside iv. If either source is the sample itself, the sample has no usable
// bracket on that side and becomes a ray marching sample: both sources are
// the sample.
func ResolveSources(words []uint32, sample int, iv Interval) (left, right int) {
	if AllSimilar(words, iv.Anchor0, iv.Anchor1) {
		left, right = iv.Anchor0, iv.Anchor1
	} else {
		left = FindLeftSource(words, sample, iv.Anchor0)
		right = FindRightSource(words, sample, iv.Anchor1)
	}

	if left == sample || right == sample {
		return sample, sample
	}
	return left, right
}
