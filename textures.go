package epipolar

import "fmt"

// InvalidSourceIndex is the value NewSourceMap clears entries to. Entries of
// samples that are not on screen keep it after refinement.
const InvalidSourceIndex = 0xFFFFFFFF

// All epipolar textures are indexed by (sample, slice): texel x of row y is
// sample x of slice y, rows are Width texels long.

// CoordinateMap holds the normalized device coordinates of every sample.
type CoordinateMap struct {
	Width, Height int

	// Pix holds two float32 (x, y) per texel.
	Pix []float32
}

// NewCoordinateMap allocates a zeroed coordinate map.
func NewCoordinateMap(width, height int) *CoordinateMap {
	return &CoordinateMap{Width: width, Height: height, Pix: make([]float32, 2*width*height)}
}

// At returns the screen position of a sample.
func (m *CoordinateMap) At(sample, slice int) (x, y float32) {
	i := 2 * (slice*m.Width + sample)
	return m.Pix[i], m.Pix[i+1]
}

// Set stores the screen position of a sample.
func (m *CoordinateMap) Set(sample, slice int, x, y float32) {
	i := 2 * (slice*m.Width + sample)
	m.Pix[i], m.Pix[i+1] = x, y
}

// DepthMap holds the camera space depth of every sample.
type DepthMap struct {
	Width, Height int
	Pix           []float32
}

// NewDepthMap allocates a zeroed depth map.
func NewDepthMap(width, height int) *DepthMap {
	return &DepthMap{Width: width, Height: height, Pix: make([]float32, width*height)}
}

// At returns the depth of a sample.
func (m *DepthMap) At(sample, slice int) float32 { return m.Pix[slice*m.Width+sample] }

// Set stores the depth of a sample.
func (m *DepthMap) Set(sample, slice int, z float32) { m.Pix[slice*m.Width+sample] = z }

// ScatterMap holds the RGB in-scattered light of every sample.
type ScatterMap struct {
	Width, Height int

	// Pix holds three float32 (r, g, b) per texel.
	Pix []float32
}

// NewScatterMap allocates a zeroed in-scattering map.
func NewScatterMap(width, height int) *ScatterMap {
	return &ScatterMap{Width: width, Height: height, Pix: make([]float32, 3*width*height)}
}

// At returns the in-scattered light of a sample.
func (m *ScatterMap) At(sample, slice int) [3]float32 {
	i := 3 * (slice*m.Width + sample)
	return [3]float32{m.Pix[i], m.Pix[i+1], m.Pix[i+2]}
}

// Set stores the in-scattered light of a sample.
func (m *ScatterMap) Set(sample, slice int, rgb [3]float32) {
	i := 3 * (slice*m.Width + sample)
	copy(m.Pix[i:i+3], rgb[:])
}

// SourceMap is the refinement output: for every sample, the global indices
// of the two samples it is interpolated from. A ray marching sample is its
// own source on both sides.
type SourceMap struct {
	Width, Height int

	// Pix holds two uint32 (left, right) per texel.
	Pix []uint32
}

// NewSourceMap allocates a source map cleared to InvalidSourceIndex.
func NewSourceMap(width, height int) *SourceMap {
	m := &SourceMap{Width: width, Height: height, Pix: make([]uint32, 2*width*height)}
	m.Clear(InvalidSourceIndex)
	return m
}

// Clear sets every entry to v. Refinement does not write entries of
// invalid samples, so the map must be cleared before each dispatch.
func (m *SourceMap) Clear(v uint32) {
	for i := range m.Pix {
		m.Pix[i] = v
	}
}

// At returns the interpolation sources of a sample.
func (m *SourceMap) At(sample, slice int) (left, right uint32) {
	i := 2 * (slice*m.Width + sample)
	return m.Pix[i], m.Pix[i+1]
}

// IsRayMarching reports whether a sample is interpolated from itself.
func (m *SourceMap) IsRayMarching(sample, slice int) bool {
	left, right := m.At(sample, slice)
	//nolint:gosec // sample is bounded by Width
	return left == uint32(sample) && right == uint32(sample)
}

// Inputs are the read-only inputs of one refinement dispatch.
type Inputs struct {
	// Coordinates is required. Its size defines the dispatch.
	Coordinates *CoordinateMap

	// Depth is required by DepthDifference.
	Depth *DepthMap

	// Scattering is required by InscatteringDifference. Invalid samples
	// are expected to carry a large negative value.
	Scattering *ScatterMap

	// AverageLuminance is the average scene luminance, used by
	// InscatteringDifference.
	AverageLuminance float32

	Attribs Attribs
}

// Validate checks the inputs against a criterion and the output map. Refine
// calls it; drivers that run the kernel elsewhere should too.
func (in *Inputs) Validate(c Criterion, out *SourceMap) error {
	if err := in.Attribs.Validate(); err != nil {
		return err
	}
	if in.Coordinates == nil {
		return fmt.Errorf("%w: coordinates", ErrMissingInput)
	}
	w, h := in.Coordinates.Width, in.Coordinates.Height
	if w <= 0 || h <= 0 || len(in.Coordinates.Pix) != 2*w*h {
		return fmt.Errorf("%w: coordinates %dx%d with %d values", ErrDimensionMismatch, w, h, len(in.Coordinates.Pix))
	}
	if out == nil {
		return fmt.Errorf("%w: output source map", ErrMissingInput)
	}
	if out.Width != w || out.Height != h || len(out.Pix) != 2*w*h {
		return fmt.Errorf("%w: source map %dx%d, coordinates %dx%d", ErrDimensionMismatch, out.Width, out.Height, w, h)
	}

	switch c {
	case DepthDifference:
		if in.Depth == nil {
			return fmt.Errorf("%w: depth criterion needs a depth map", ErrMissingInput)
		}
		if in.Depth.Width != w || in.Depth.Height != h || len(in.Depth.Pix) != w*h {
			return fmt.Errorf("%w: depth %dx%d, coordinates %dx%d", ErrDimensionMismatch, in.Depth.Width, in.Depth.Height, w, h)
		}
	case InscatteringDifference:
		if in.Scattering == nil {
			return fmt.Errorf("%w: in-scattering criterion needs a scattering map", ErrMissingInput)
		}
		if in.Scattering.Width != w || in.Scattering.Height != h || len(in.Scattering.Pix) != 3*w*h {
			return fmt.Errorf("%w: scattering %dx%d, coordinates %dx%d", ErrDimensionMismatch, in.Scattering.Width, in.Scattering.Height, w, h)
		}
		if isNaN(in.AverageLuminance) || in.AverageLuminance < 0 {
			return fmt.Errorf("%w: average luminance %v", ErrInvalidAttribs, in.AverageLuminance)
		}
	}
	return nil
}
