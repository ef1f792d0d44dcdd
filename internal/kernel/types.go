// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package kernel

// Criterion selects how the difference between neighbouring samples is
// measured. It is fixed for the lifetime of a compiled kernel.
type Criterion uint8

const (
	// CriterionDepthDiff compares camera space depth.
	CriterionDepthDiff Criterion = iota

	// CriterionInscatterDiff compares in-scattered light relative to a
	// luminance adaptive floor.
	CriterionInscatterDiff
)

// String returns the criterion name.
func (c Criterion) String() string {
	switch c {
	case CriterionDepthDiff:
		return "depth"
	case CriterionInscatterDiff:
		return "inscattering"
	default:
		return "unknown"
	}
}

// Params is the constant block shared by every thread of a dispatch.
// Params must be validated by the caller; the kernel does not check it.
type Params struct {
	// Stride is the distance between initial ray marching samples.
	Stride int

	// GroupSize is the number of threads (samples) per workgroup.
	// It is a multiple of FlagBits.
	GroupSize int

	// Criterion selects the difference flag computation.
	Criterion Criterion

	RefinementThreshold float32
	DensityFactor       uint32
	LightScreenPos      [2]float32
	MiddleGray          float32
	AverageLuminance    float32

	// EpipoleBudgetFraction and EpipoleRadius bound the region where the
	// stride is divided by DensityFactor.
	EpipoleBudgetFraction float32
	EpipoleRadius         float32
}

// Textures holds the epipolar textures of a dispatch. Texel (x, y) is sample
// x of slice y. All slices are row-major with Width texels per row.
type Textures struct {
	Width  int
	Height int

	// Coords holds two float32 per texel: the sample's normalized device
	// coordinates.
	Coords []float32

	// CamSpaceZ holds one float32 per texel. Read under CriterionDepthDiff.
	CamSpaceZ []float32

	// Scattered holds three float32 per texel (RGB in-scattered light).
	// Read under CriterionInscatterDiff.
	Scattered []float32

	// Sources receives two uint32 per texel: left and right interpolation
	// source indices. Entries of invalid samples are never written.
	Sources []uint32
}

func (t *Textures) inBounds(x, y int) bool {
	return x >= 0 && x < t.Width && y >= 0 && y < t.Height
}

// Coord returns the screen position of sample x in slice y.
// ok is false outside the texture.
func (t *Textures) Coord(x, y int) (cx, cy float32, ok bool) {
	if !t.inBounds(x, y) {
		return 0, 0, false
	}
	i := 2 * (y*t.Width + x)
	return t.Coords[i], t.Coords[i+1], true
}

// Depth returns the camera space depth of sample x in slice y.
func (t *Textures) Depth(x, y int) (float32, bool) {
	if !t.inBounds(x, y) {
		return 0, false
	}
	return t.CamSpaceZ[y*t.Width+x], true
}

// Inscattering returns the in-scattered light of sample x in slice y.
func (t *Textures) Inscattering(x, y int) ([3]float32, bool) {
	if !t.inBounds(x, y) {
		return [3]float32{}, false
	}
	i := 3 * (y*t.Width + x)
	return [3]float32{t.Scattered[i], t.Scattered[i+1], t.Scattered[i+2]}, true
}

// writeSource stores the interpolation sources of sample x in slice y.
func (t *Textures) writeSource(x, y int, left, right uint32) {
	i := 2 * (y*t.Width + x)
	t.Sources[i] = left
	t.Sources[i+1] = right
}

// NumGroups returns the number of workgroups covering a slice of width
// samples. The final group may be partial.
func NumGroups(width, groupSize int) int {
	return (width + groupSize - 1) / groupSize
}
