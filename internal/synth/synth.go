// Package synth generates epipolar textures for a simple procedural scene:
// a point light shining past a disc-shaped occluder into a homogeneous
// medium. It feeds the refine command and end-to-end tests.
package synth

import (
	"fmt"
	"math"

	"github.com/gogpu/epipolar"
)

// InvalidCoordinate marks samples whose epipolar line has left the screen.
// Depth and in-scattering of such samples carry the same value, so the
// difference test breaks between them and their on-screen neighbours.
const InvalidCoordinate = -1e6

// SceneParams describes the procedural scene.
type SceneParams struct {
	// Samples is the number of samples per slice (texture width).
	Samples int

	// Slices is the number of epipolar slices (texture height).
	Slices int

	// LightPos is the light's screen position.
	LightPos [2]float32

	// LineLength is the screen length of every epipolar line. Samples past
	// the screen edge are invalid.
	LineLength float32

	// OccluderCenter and OccluderRadius place the occluding disc.
	OccluderCenter [2]float32
	OccluderRadius float32

	// BackgroundDepth and OccluderDepth are camera space depths.
	BackgroundDepth float32
	OccluderDepth   float32

	// Falloff is the in-scattering decay with screen distance from the
	// light.
	Falloff float32

	// LightColor is the in-scattered light at the light's position.
	LightColor [3]float32
}

// DefaultSceneParams returns a 256 x 64 scene with the light off center.
func DefaultSceneParams() SceneParams {
	return SceneParams{
		Samples:         256,
		Slices:          64,
		LightPos:        [2]float32{0.2, 0.3},
		LineLength:      2,
		OccluderCenter:  [2]float32{-0.3, -0.1},
		OccluderRadius:  0.25,
		BackgroundDepth: 500,
		OccluderDepth:   40,
		Falloff:         2.5,
		LightColor:      [3]float32{1, 0.9, 0.7},
	}
}

// Scene holds generated textures.
type Scene struct {
	Coordinates *epipolar.CoordinateMap
	Depth       *epipolar.DepthMap
	Scattering  *epipolar.ScatterMap

	// AverageLuminance is the mean luminance of all valid samples.
	AverageLuminance float32

	// Invalid is the number of off-screen samples.
	Invalid int
}

// Inputs returns refinement inputs for the scene with the light position
// filled in.
func (s *Scene) Inputs(p SceneParams, a epipolar.Attribs) epipolar.Inputs {
	a.LightScreenPos = p.LightPos
	return epipolar.Inputs{
		Coordinates:      s.Coordinates,
		Depth:            s.Depth,
		Scattering:       s.Scattering,
		AverageLuminance: s.AverageLuminance,
		Attribs:          a,
	}
}

// Generate renders the scene. Slice y leaves the light at angle
// 2*pi*y/Slices; sample x lies at distance LineLength*x/(Samples-1).
func Generate(p SceneParams) (*Scene, error) {
	if p.Samples < 2 || p.Slices < 1 {
		return nil, fmt.Errorf("synth: invalid size %dx%d", p.Samples, p.Slices)
	}
	if p.LineLength <= 0 {
		return nil, fmt.Errorf("synth: line length %v must be positive", p.LineLength)
	}

	s := &Scene{
		Coordinates: epipolar.NewCoordinateMap(p.Samples, p.Slices),
		Depth:       epipolar.NewDepthMap(p.Samples, p.Slices),
		Scattering:  epipolar.NewScatterMap(p.Samples, p.Slices),
	}

	var lumSum float64
	valid := 0
	for y := range p.Slices {
		angle := 2 * math.Pi * float64(y) / float64(p.Slices)
		dx, dy := float32(math.Cos(angle)), float32(math.Sin(angle))

		// In-scattering accumulates along the ray until it hits the
		// occluder, then stays constant behind it.
		shadowed := false
		for x := range p.Samples {
			t := p.LineLength * float32(x) / float32(p.Samples-1)
			cx := p.LightPos[0] + dx*t
			cy := p.LightPos[1] + dy*t

			if !onScreen(cx, cy) {
				s.Coordinates.Set(x, y, InvalidCoordinate, InvalidCoordinate)
				s.Depth.Set(x, y, InvalidCoordinate)
				s.Scattering.Set(x, y, [3]float32{InvalidCoordinate, InvalidCoordinate, InvalidCoordinate})
				s.Invalid++
				continue
			}
			s.Coordinates.Set(x, y, cx, cy)

			occluded := hypot(cx-p.OccluderCenter[0], cy-p.OccluderCenter[1]) < p.OccluderRadius
			if occluded {
				s.Depth.Set(x, y, p.OccluderDepth)
				shadowed = true
			} else {
				s.Depth.Set(x, y, p.BackgroundDepth)
			}

			intensity := float32(math.Exp(-float64(p.Falloff * t)))
			if shadowed {
				intensity *= 0.25
			}
			rgb := [3]float32{
				p.LightColor[0] * intensity,
				p.LightColor[1] * intensity,
				p.LightColor[2] * intensity,
			}
			s.Scattering.Set(x, y, rgb)

			lumSum += float64(luminance(rgb))
			valid++
		}
	}
	if valid > 0 {
		s.AverageLuminance = float32(lumSum / float64(valid))
	}
	return s, nil
}

func onScreen(x, y float32) bool {
	return x >= -1 && x <= 1 && y >= -1 && y <= 1
}

func hypot(x, y float32) float32 {
	return float32(math.Hypot(float64(x), float64(y)))
}

func luminance(rgb [3]float32) float32 {
	return 0.212671*rgb[0] + 0.715160*rgb[1] + 0.072169*rgb[2]
}
