package synth

import (
	"testing"

	"github.com/gogpu/epipolar"
	"github.com/gogpu/epipolar/internal/kernel"
)

func TestGenerateDefault(t *testing.T) {
	p := DefaultSceneParams()
	s, err := Generate(p)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if s.Coordinates.Width != p.Samples || s.Coordinates.Height != p.Slices {
		t.Fatalf("size = %dx%d, want %dx%d", s.Coordinates.Width, s.Coordinates.Height, p.Samples, p.Slices)
	}
	if s.Invalid == 0 {
		t.Error("lines longer than the screen should produce invalid samples")
	}
	if s.AverageLuminance <= 0 {
		t.Errorf("AverageLuminance = %v, want positive", s.AverageLuminance)
	}

	// The first sample of every slice is the light itself.
	for y := range p.Slices {
		x0, y0 := s.Coordinates.At(0, y)
		if x0 != p.LightPos[0] || y0 != p.LightPos[1] {
			t.Fatalf("slice %d starts at (%v, %v), want light position", y, x0, y0)
		}
	}
}

func TestGenerateInvalidSamples(t *testing.T) {
	s, err := Generate(DefaultSceneParams())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	invalid := 0
	for y := range s.Coordinates.Height {
		for x := range s.Coordinates.Width {
			cx, cy := s.Coordinates.At(x, y)
			if !kernel.IsValidSample(cx, cy) {
				invalid++
				if rgb := s.Scattering.At(x, y); rgb[0] >= 0 {
					t.Fatalf("(%d,%d): invalid sample has scattering %v", x, y, rgb)
				}
				if z := s.Depth.At(x, y); z != InvalidCoordinate {
					t.Fatalf("(%d,%d): invalid sample has depth %v", x, y, z)
				}
			}
		}
	}
	if invalid != s.Invalid {
		t.Errorf("counted %d invalid samples, Scene.Invalid = %d", invalid, s.Invalid)
	}
}

func TestGenerateOccluder(t *testing.T) {
	p := DefaultSceneParams()
	p.OccluderCenter = p.LightPos
	p.OccluderRadius = 0.1

	s, err := Generate(p)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got := s.Depth.At(0, 0); got != p.OccluderDepth {
		t.Errorf("depth at the light = %v, want occluder depth %v", got, p.OccluderDepth)
	}
	last := s.Scattering.At(p.Samples/4, 0)
	unshadowed := p.LightColor[0] * 0.5
	if last[0] >= unshadowed {
		t.Errorf("scattering behind the occluder = %v, want attenuated", last[0])
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *SceneParams)
	}{
		{"one sample", func(p *SceneParams) { p.Samples = 1 }},
		{"no slices", func(p *SceneParams) { p.Slices = 0 }},
		{"zero length", func(p *SceneParams) { p.LineLength = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultSceneParams()
			tt.modify(&p)
			if _, err := Generate(p); err == nil {
				t.Error("Generate() should fail")
			}
		})
	}
}

// TestSceneRefines runs both criteria over a generated scene and checks that
// every valid sample is bracketed by its sources.
func TestSceneRefines(t *testing.T) {
	p := DefaultSceneParams()
	s, err := Generate(p)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	for _, c := range []epipolar.Criterion{epipolar.DepthDifference, epipolar.InscatteringDifference} {
		t.Run(c.String(), func(t *testing.T) {
			r, err := epipolar.NewRefiner(epipolar.WithLayout(epipolar.NewLayout(32, c)))
			if err != nil {
				t.Fatalf("NewRefiner() error = %v", err)
			}
			defer r.Close()

			out := epipolar.NewSourceMap(p.Samples, p.Slices)
			stats, err := r.Refine(s.Inputs(p, epipolar.DefaultAttribs()), out)
			if err != nil {
				t.Fatalf("Refine() error = %v", err)
			}
			if stats.Valid != p.Samples*p.Slices-s.Invalid {
				t.Errorf("Valid = %d, want %d", stats.Valid, p.Samples*p.Slices-s.Invalid)
			}

			for y := range p.Slices {
				for x := range p.Samples {
					left, right := out.At(x, y)
					if left == epipolar.InvalidSourceIndex {
						continue
					}
					//nolint:gosec // sample index fits uint32
					if left > uint32(x) || right < uint32(x) {
						t.Fatalf("(%d,%d): sources (%d,%d) do not bracket", x, y, left, right)
					}
				}
			}
		})
	}
}

// TestSceneSourcesStayOnScreen checks that no on-screen sample takes an
// off-screen sample as an interpolation source under either criterion.
func TestSceneSourcesStayOnScreen(t *testing.T) {
	p := DefaultSceneParams()
	s, err := Generate(p)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	for _, c := range []epipolar.Criterion{epipolar.DepthDifference, epipolar.InscatteringDifference} {
		t.Run(c.String(), func(t *testing.T) {
			r, err := epipolar.NewRefiner(epipolar.WithLayout(epipolar.NewLayout(32, c)))
			if err != nil {
				t.Fatalf("NewRefiner() error = %v", err)
			}
			defer r.Close()

			out := epipolar.NewSourceMap(p.Samples, p.Slices)
			if _, err := r.Refine(s.Inputs(p, epipolar.DefaultAttribs()), out); err != nil {
				t.Fatalf("Refine() error = %v", err)
			}

			for y := range p.Slices {
				for x := range p.Samples {
					left, right := out.At(x, y)
					if left == epipolar.InvalidSourceIndex {
						continue
					}
					for _, src := range []uint32{left, right} {
						if cx, cy := s.Coordinates.At(int(src), y); !kernel.IsValidSample(cx, cy) {
							t.Fatalf("slice %d sample %d sources (%d,%d): source %d is off-screen",
								y, x, left, right, src)
						}
					}
				}
			}
		})
	}
}
