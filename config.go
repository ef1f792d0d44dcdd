package epipolar

import (
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/epipolar/internal/kernel"
)

// Errors returned by validation at the dispatch boundary.
var (
	// ErrInvalidLayout reports a Layout the kernel cannot run.
	ErrInvalidLayout = errors.New("epipolar: invalid layout")

	// ErrInvalidAttribs reports out-of-range runtime attributes.
	ErrInvalidAttribs = errors.New("epipolar: invalid attribs")

	// ErrDimensionMismatch reports textures whose sizes disagree.
	ErrDimensionMismatch = errors.New("epipolar: texture dimension mismatch")

	// ErrMissingInput reports a texture required by the active criterion
	// that was not provided.
	ErrMissingInput = errors.New("epipolar: missing input texture")
)

// Criterion selects how neighbouring samples are compared.
type Criterion uint8

const (
	// DepthDifference compares camera space depth.
	DepthDifference Criterion = iota

	// InscatteringDifference compares in-scattered light against a floor
	// derived from the average scene luminance.
	InscatteringDifference
)

// String returns the criterion name.
func (c Criterion) String() string {
	switch c {
	case DepthDifference:
		return "depth"
	case InscatteringDifference:
		return "inscattering"
	default:
		return fmt.Sprintf("Criterion(%d)", uint8(c))
	}
}

// ParseCriterion parses the names returned by Criterion.String.
func ParseCriterion(s string) (Criterion, error) {
	switch s {
	case "depth":
		return DepthDifference, nil
	case "inscattering":
		return InscatteringDifference, nil
	default:
		return 0, fmt.Errorf("epipolar: unknown criterion %q", s)
	}
}

func (c Criterion) kernel() kernel.Criterion {
	if c == DepthDifference {
		return kernel.CriterionDepthDiff
	}
	return kernel.CriterionInscatterDiff
}

// DefaultStride is the default distance between initial ray marching
// samples.
const DefaultStride = 128

// Layout is the compile-time configuration of the refinement kernel. It is
// fixed for the lifetime of a Refiner.
type Layout struct {
	// Stride is the distance between initial ray marching samples.
	Stride int

	// GroupSize is the number of samples per workgroup. It must be a
	// multiple of 32 and of Stride.
	GroupSize int

	// Criterion selects the difference test.
	Criterion Criterion
}

// NewLayout returns a layout for the given stride with the default group
// size max(stride, 32).
func NewLayout(stride int, c Criterion) Layout {
	return Layout{Stride: stride, GroupSize: max(stride, kernel.FlagBits), Criterion: c}
}

// DefaultLayout returns stride 128 with the in-scattering criterion.
func DefaultLayout() Layout {
	return NewLayout(DefaultStride, InscatteringDifference)
}

// Validate reports whether the kernel can run with this layout.
func (l Layout) Validate() error {
	switch {
	case l.Stride <= 0:
		return fmt.Errorf("%w: stride %d must be positive", ErrInvalidLayout, l.Stride)
	case l.GroupSize <= 0 || l.GroupSize%kernel.FlagBits != 0:
		return fmt.Errorf("%w: group size %d must be a positive multiple of %d",
			ErrInvalidLayout, l.GroupSize, kernel.FlagBits)
	case l.GroupSize%l.Stride != 0:
		return fmt.Errorf("%w: group size %d is not a multiple of stride %d",
			ErrInvalidLayout, l.GroupSize, l.Stride)
	case l.Criterion != DepthDifference && l.Criterion != InscatteringDifference:
		return fmt.Errorf("%w: %v", ErrInvalidLayout, l.Criterion)
	}
	return nil
}

// Attribs is the runtime configuration block of a dispatch.
type Attribs struct {
	// RefinementThreshold is the relative difference above which two
	// neighbouring samples are not interpolated across.
	RefinementThreshold float32

	// EpipoleSamplingDensityFactor divides the stride near the epipole.
	// Must be at least 1.
	EpipoleSamplingDensityFactor uint32

	// LightScreenPos is the light's position in normalized device
	// coordinates.
	LightScreenPos [2]float32

	// MiddleGray is the tone mapping middle gray value.
	MiddleGray float32

	// EpipoleBudgetFraction is the leading fraction of a slice in which
	// the denser epipole sampling may apply.
	EpipoleBudgetFraction float32

	// EpipoleRadius is the screen distance from the light within which the
	// denser epipole sampling applies.
	EpipoleRadius float32
}

// DefaultAttribs returns the attributes used by the reference renderer.
func DefaultAttribs() Attribs {
	return Attribs{
		RefinementThreshold:          0.03,
		EpipoleSamplingDensityFactor: 2,
		MiddleGray:                   0.18,
		EpipoleBudgetFraction:        0.05,
		EpipoleRadius:                0.1,
	}
}

// Validate reports whether the attributes are in range.
func (a Attribs) Validate() error {
	switch {
	case isNaN(a.RefinementThreshold) || a.RefinementThreshold < 0:
		return fmt.Errorf("%w: refinement threshold %v", ErrInvalidAttribs, a.RefinementThreshold)
	case a.EpipoleSamplingDensityFactor < 1:
		return fmt.Errorf("%w: epipole sampling density factor must be at least 1", ErrInvalidAttribs)
	case isNaN(a.MiddleGray) || a.MiddleGray <= 0:
		return fmt.Errorf("%w: middle gray %v must be positive", ErrInvalidAttribs, a.MiddleGray)
	case isNaN(a.EpipoleBudgetFraction) || a.EpipoleBudgetFraction < 0:
		return fmt.Errorf("%w: epipole budget fraction %v", ErrInvalidAttribs, a.EpipoleBudgetFraction)
	case isNaN(a.EpipoleRadius) || a.EpipoleRadius < 0:
		return fmt.Errorf("%w: epipole radius %v", ErrInvalidAttribs, a.EpipoleRadius)
	case isNaN(a.LightScreenPos[0]) || isNaN(a.LightScreenPos[1]):
		return fmt.Errorf("%w: light screen position %v", ErrInvalidAttribs, a.LightScreenPos)
	}
	return nil
}

// KernelParams converts the layout and attributes into the kernel constant
// block. Sub-packages that drive the kernel directly use it.
func KernelParams(l Layout, a Attribs, averageLuminance float32) kernel.Params {
	return kernel.Params{
		Stride:                l.Stride,
		GroupSize:             l.GroupSize,
		Criterion:             l.Criterion.kernel(),
		RefinementThreshold:   a.RefinementThreshold,
		DensityFactor:         a.EpipoleSamplingDensityFactor,
		LightScreenPos:        a.LightScreenPos,
		MiddleGray:            a.MiddleGray,
		AverageLuminance:      averageLuminance,
		EpipoleBudgetFraction: a.EpipoleBudgetFraction,
		EpipoleRadius:         a.EpipoleRadius,
	}
}

func isNaN(v float32) bool {
	return math.IsNaN(float64(v))
}
