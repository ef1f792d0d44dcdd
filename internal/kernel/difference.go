// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package kernel

import "math"

// validityEpsilon widens the [-1, 1] screen range so that samples lying
// exactly on the border stay valid after rounding.
const validityEpsilon = 1e-4

// depthThresholdScale scales the refinement threshold for depth comparison.
const depthThresholdScale = 0.2

// inscatterFloorScale is the fraction of the average luminance below which
// in-scattering differences are not significant.
const inscatterFloorScale = 0.02

// rgbToLuminance are the Rec. 709 luminance weights.
var rgbToLuminance = [3]float32{0.212671, 0.715160, 0.072169}

// IsValidSample reports whether a sample at normalized device coordinates
// (x, y) lies on screen. NaN coordinates are invalid.
func IsValidSample(x, y float32) bool {
	const limit = 1 + validityEpsilon
	return abs32(x) < limit && abs32(y) < limit
}

// DepthSimilar reports whether two camera space depths are close enough for
// interpolation. The difference is relative to the larger depth, but never
// to less than one unit.
func DepthSimilar(z0, z1, threshold float32) bool {
	maxZ := max(z0, z1, 1)
	return abs32(z0-z1)/maxZ < depthThresholdScale*threshold
}

// InscatterFloor returns the per-channel minimum in-scattering used as the
// denominator of the relative difference. It grows with the average scene
// luminance and shrinks with the tone mapping middle gray; channels that
// contribute less to perceived brightness get a larger floor.
func InscatterFloor(averageLuminance, middleGray float32) [3]float32 {
	var floor [3]float32
	for c := range floor {
		floor[c] = inscatterFloorScale * averageLuminance / rgbToLuminance[c] / middleGray
	}
	return floor
}

// InscatterSimilar reports whether two in-scattering values are close enough
// for interpolation in every channel. An invalid neighbour carries a large
// negative value upstream, which always fails the test.
func InscatterSimilar(c0, c1, floor [3]float32, threshold float32) bool {
	for c := range c0 {
		denom := max(c0[c], c1[c], floor[c])
		if !(abs32(c0[c]-c1[c])/denom < threshold) {
			return false
		}
	}
	return true
}

func abs32(v float32) float32 {
	return math.Float32frombits(math.Float32bits(v) &^ (1 << 31))
}
