package exrio

import (
	"errors"
	"fmt"
	"os"

	"github.com/gogpu/epipolar"
	"github.com/mrjoshuak/go-openexr/exr"
	"github.com/mrjoshuak/go-openexr/half"
)

// ErrMissingChannel is returned when an image lacks a channel the texture
// needs.
var ErrMissingChannel = errors.New("exrio: missing channel")

// Channel names per texture.
var (
	coordinateChannels = []string{"R", "G"}
	depthChannels      = []string{"Z"}
	scatterChannels    = []string{"R", "G", "B"}
	sourceChannels     = []string{"R", "G"}
)

// WriteOption configures how an image is written.
type WriteOption func(*writeOptions)

type writeOptions struct {
	compression exr.Compression
	half        bool
}

func defaultWriteOptions() writeOptions {
	return writeOptions{compression: exr.CompressionZIP}
}

// WithCompression sets the image compression. The default is ZIP.
func WithCompression(c exr.Compression) WriteOption {
	return func(o *writeOptions) {
		o.compression = c
	}
}

// WithHalf stores float channels as 16-bit half floats. Coordinates and
// depth lose precision, so it is meant for in-scattering.
func WithHalf() WriteOption {
	return func(o *writeOptions) {
		o.half = true
	}
}

// WriteCoordinates writes a coordinate map.
func WriteCoordinates(path string, m *epipolar.CoordinateMap, opts ...WriteOption) error {
	return writeFloats(path, m.Width, m.Height, coordinateChannels, m.Pix, opts)
}

// WriteDepth writes a depth map.
func WriteDepth(path string, m *epipolar.DepthMap, opts ...WriteOption) error {
	return writeFloats(path, m.Width, m.Height, depthChannels, m.Pix, opts)
}

// WriteScattering writes an in-scattering map.
func WriteScattering(path string, m *epipolar.ScatterMap, opts ...WriteOption) error {
	return writeFloats(path, m.Width, m.Height, scatterChannels, m.Pix, opts)
}

// WriteSources writes a source map. Sources are always stored as uint.
func WriteSources(path string, m *epipolar.SourceMap, opts ...WriteOption) error {
	o := applyWriteOptions(opts)
	return writeImage(path, m.Width, m.Height, sourceChannels, exr.PixelTypeUint, o, func(fb *exr.FrameBuffer) {
		n := len(sourceChannels)
		for c, name := range sourceChannels {
			s := fb.Get(name)
			for y := range m.Height {
				for x := range m.Width {
					s.SetUint32(x, y, m.Pix[n*(y*m.Width+x)+c])
				}
			}
		}
	})
}

// ReadCoordinates reads a coordinate map.
func ReadCoordinates(path string) (*epipolar.CoordinateMap, error) {
	w, h, pix, err := readFloats(path, coordinateChannels)
	if err != nil {
		return nil, err
	}
	return &epipolar.CoordinateMap{Width: w, Height: h, Pix: pix}, nil
}

// ReadDepth reads a depth map.
func ReadDepth(path string) (*epipolar.DepthMap, error) {
	w, h, pix, err := readFloats(path, depthChannels)
	if err != nil {
		return nil, err
	}
	return &epipolar.DepthMap{Width: w, Height: h, Pix: pix}, nil
}

// ReadScattering reads an in-scattering map.
func ReadScattering(path string) (*epipolar.ScatterMap, error) {
	w, h, pix, err := readFloats(path, scatterChannels)
	if err != nil {
		return nil, err
	}
	return &epipolar.ScatterMap{Width: w, Height: h, Pix: pix}, nil
}

// ReadSources reads a source map.
func ReadSources(path string) (*epipolar.SourceMap, error) {
	m := &epipolar.SourceMap{}
	err := readImage(path, sourceChannels, func(w, h, ox, oy int, fb *exr.FrameBuffer) {
		m.Width, m.Height = w, h
		m.Pix = make([]uint32, len(sourceChannels)*w*h)
		n := len(sourceChannels)
		for c, name := range sourceChannels {
			s := fb.Get(name)
			for y := range h {
				for x := range w {
					m.Pix[n*(y*w+x)+c] = s.GetUint32(ox+x, oy+y)
				}
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func applyWriteOptions(opts []WriteOption) writeOptions {
	o := defaultWriteOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// writeFloats writes interleaved float texels, one channel per name.
func writeFloats(path string, width, height int, names []string, pix []float32, opts []WriteOption) error {
	o := applyWriteOptions(opts)
	typ := exr.PixelTypeFloat
	if o.half {
		typ = exr.PixelTypeHalf
	}
	if len(pix) != len(names)*width*height {
		return fmt.Errorf("exrio: %s: %d values for %dx%d texels of %d channels",
			path, len(pix), width, height, len(names))
	}

	return writeImage(path, width, height, names, typ, o, func(fb *exr.FrameBuffer) {
		n := len(names)
		for c, name := range names {
			s := fb.Get(name)
			for y := range height {
				for x := range width {
					v := pix[n*(y*width+x)+c]
					if o.half {
						s.SetHalf(x, y, half.FromFloat32(v))
					} else {
						s.SetFloat32(x, y, v)
					}
				}
			}
		}
	})
}

func writeImage(path string, width, height int, names []string, typ exr.PixelType,
	o writeOptions, fill func(fb *exr.FrameBuffer)) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("exrio: %s: invalid size %dx%d", path, width, height)
	}

	h := exr.NewScanlineHeader(width, height)
	h.SetCompression(o.compression)
	cl := exr.NewChannelList()
	for _, name := range names {
		cl.Add(exr.Channel{Name: name, Type: typ, XSampling: 1, YSampling: 1})
	}
	h.SetChannels(cl)

	fb, _ := exr.AllocateChannels(cl, h.DataWindow())
	fill(fb)

	f, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return fmt.Errorf("exrio: %w", err)
	}
	defer f.Close()

	sw, err := exr.NewScanlineWriter(f, h)
	if err != nil {
		return fmt.Errorf("exrio: %s: %w", path, err)
	}
	sw.SetFrameBuffer(fb)
	if err := sw.WritePixels(0, height-1); err != nil {
		return fmt.Errorf("exrio: %s: %w", path, err)
	}
	if err := sw.Close(); err != nil {
		return fmt.Errorf("exrio: %s: %w", path, err)
	}

	epipolar.Logger().Debug("exrio: wrote image",
		"path", path,
		"size", fmt.Sprintf("%dx%d", width, height),
		"channels", names,
	)
	return f.Close()
}

// readFloats reads the named channels into interleaved float texels.
func readFloats(path string, names []string) (width, height int, pix []float32, err error) {
	err = readImage(path, names, func(w, h, ox, oy int, fb *exr.FrameBuffer) {
		width, height = w, h
		pix = make([]float32, len(names)*w*h)
		n := len(names)
		for c, name := range names {
			s := fb.Get(name)
			for y := range h {
				for x := range w {
					pix[n*(y*w+x)+c] = s.GetFloat32(ox+x, oy+y)
				}
			}
		}
	})
	return width, height, pix, err
}

// readImage loads the named channels. Slices are addressed in data window
// coordinates, so load receives the window origin.
func readImage(path string, names []string, load func(w, h, ox, oy int, fb *exr.FrameBuffer)) error {
	f, err := exr.OpenFile(path)
	if err != nil {
		return fmt.Errorf("exrio: %w", err)
	}
	defer f.Close()

	sr, err := exr.NewScanlineReader(f)
	if err != nil {
		return fmt.Errorf("exrio: %s: %w", path, err)
	}
	dw := sr.DataWindow()
	w, h := int(dw.Width()), int(dw.Height())

	fb, _ := exr.AllocateChannels(sr.Header().Channels(), dw)
	for _, name := range names {
		if !fb.Has(name) {
			return fmt.Errorf("%w: %s has no channel %q", ErrMissingChannel, path, name)
		}
	}
	sr.SetFrameBuffer(fb)
	if err := sr.ReadPixels(int(dw.Min.Y), int(dw.Max.Y)); err != nil {
		return fmt.Errorf("exrio: %s: %w", path, err)
	}

	load(w, h, int(dw.Min.X), int(dw.Min.Y), fb)
	return nil
}
