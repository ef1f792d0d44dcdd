// Command refine runs the epipolar sample refinement stage over a set of
// EXR textures, or over a generated test scene, and writes the source map.
//
// Usage:
//
//	refine -synth -out sources.exr -viz sources.tiff
//	refine -coords coords.exr -depth depth.exr -criterion depth -stride 32 -out sources.exr
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/epipolar"
	"github.com/gogpu/epipolar/exrio"
	"github.com/gogpu/epipolar/internal/debugviz"
	"github.com/gogpu/epipolar/internal/synth"
	"golang.org/x/term"
)

func main() {
	var (
		useSynth  = flag.Bool("synth", false, "refine a generated scene instead of input files")
		samples   = flag.Int("samples", 256, "samples per slice of the generated scene")
		slices    = flag.Int("slices", 64, "slices of the generated scene")
		coords    = flag.String("coords", "", "coordinate texture (EXR, R/G channels)")
		depth     = flag.String("depth", "", "camera space depth texture (EXR, Z channel)")
		scatter   = flag.String("scatter", "", "in-scattering texture (EXR, R/G/B channels)")
		luminance = flag.Float64("luminance", 1, "average scene luminance")
		lightX    = flag.Float64("light-x", 0, "light screen position x")
		lightY    = flag.Float64("light-y", 0, "light screen position y")
		criterion = flag.String("criterion", "inscattering", "difference criterion: depth or inscattering")
		stride    = flag.Int("stride", epipolar.DefaultStride, "initial ray marching sample stride")
		groupSize = flag.Int("group-size", 0, "samples per workgroup (0 = max(stride, 32))")
		threshold = flag.Float64("threshold", 0.03, "refinement threshold")
		density   = flag.Uint("density", 2, "epipole sampling density factor")
		workers   = flag.Int("workers", 0, "concurrent workgroups (0 = GOMAXPROCS)")
		output    = flag.String("out", "sources.exr", "output source map (EXR)")
		viz       = flag.String("viz", "", "optional visualization (.tiff or .png)")
		verbose   = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	epipolar.SetLogger(newLogger(*verbose))

	c, err := epipolar.ParseCriterion(*criterion)
	if err != nil {
		log.Fatal(err)
	}
	layout := epipolar.NewLayout(*stride, c)
	if *groupSize > 0 {
		layout.GroupSize = *groupSize
	}

	attribs := epipolar.DefaultAttribs()
	attribs.RefinementThreshold = float32(*threshold)
	attribs.EpipoleSamplingDensityFactor = uint32(*density) //nolint:gosec // flag value
	attribs.LightScreenPos = [2]float32{float32(*lightX), float32(*lightY)}

	var in epipolar.Inputs
	if *useSynth {
		p := synth.DefaultSceneParams()
		p.Samples, p.Slices = *samples, *slices
		scene, err := synth.Generate(p)
		if err != nil {
			log.Fatal(err)
		}
		in = scene.Inputs(p, attribs)
	} else {
		in, err = loadInputs(*coords, *depth, *scatter)
		if err != nil {
			log.Fatal(err)
		}
		in.AverageLuminance = float32(*luminance)
		in.Attribs = attribs
	}

	r, err := epipolar.NewRefiner(epipolar.WithLayout(layout), epipolar.WithWorkers(*workers))
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	width, height := in.Coordinates.Width, in.Coordinates.Height
	out := epipolar.NewSourceMap(width, height)
	stats, err := r.Refine(in, out)
	if err != nil {
		log.Fatalf("Refine failed: %v", err)
	}

	if err := exrio.WriteSources(*output, out); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	if *viz != "" {
		if err := saveViz(*viz, out, layout.Stride); err != nil {
			log.Fatalf("Failed to save visualization: %v", err)
		}
	}

	log.Printf("Sources saved to %s (%dx%d): %d valid, %d ray marching, %d interpolated\n",
		*output, width, height, stats.Valid, stats.RayMarching, stats.Interpolated)
}

// newLogger writes text to a terminal and JSON otherwise.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(os.Stderr.Fd())) { //nolint:gosec // file descriptors fit int
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func loadInputs(coordsPath, depthPath, scatterPath string) (epipolar.Inputs, error) {
	var in epipolar.Inputs
	if coordsPath == "" {
		return in, fmt.Errorf("-coords is required without -synth")
	}

	var err error
	if in.Coordinates, err = exrio.ReadCoordinates(coordsPath); err != nil {
		return in, err
	}
	if depthPath != "" {
		if in.Depth, err = exrio.ReadDepth(depthPath); err != nil {
			return in, err
		}
	}
	if scatterPath != "" {
		if in.Scattering, err = exrio.ReadScattering(scatterPath); err != nil {
			return in, err
		}
	}
	return in, nil
}

func saveViz(path string, m *epipolar.SourceMap, stride int) error {
	img := debugviz.Render(m, stride)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return debugviz.SavePNG(path, img)
	case ".tif", ".tiff":
		return debugviz.SaveTIFF(path, img)
	default:
		return fmt.Errorf("unsupported visualization format %q", filepath.Ext(path))
	}
}
