// Package debugviz renders refinement results as images for inspection.
//
// Every sample becomes one pixel (x = sample, y = slice):
//
//	white        ray marching sample
//	blue..red    interpolated sample, hue by source distance / stride
//	black        off-screen sample (entry never written)
package debugviz

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	"github.com/gogpu/epipolar"
	"golang.org/x/image/tiff"
)

var (
	rayMarchColor = color.RGBA64{R: 0xFFFF, G: 0xFFFF, B: 0xFFFF, A: 0xFFFF}
	invalidColor  = color.RGBA64{A: 0xFFFF}
)

// Render draws a source map. stride scales the interval colors; intervals
// of stride samples or more are drawn red.
func Render(m *epipolar.SourceMap, stride int) *image.RGBA64 {
	img := image.NewRGBA64(image.Rect(0, 0, m.Width, m.Height))
	stride = max(stride, 1)
	for y := range m.Height {
		for x := range m.Width {
			img.SetRGBA64(x, y, sampleColor(m, x, y, stride))
		}
	}
	return img
}

func sampleColor(m *epipolar.SourceMap, x, y, stride int) color.RGBA64 {
	left, right := m.At(x, y)
	switch {
	case left == epipolar.InvalidSourceIndex:
		return invalidColor
	case left == right:
		return rayMarchColor
	}
	span := min(float64(right-left)/float64(stride), 1)
	v := uint16(span * 0xFFFF)
	return color.RGBA64{R: v, G: 0x4000, B: 0xFFFF - v, A: 0xFFFF}
}

// WriteTIFF encodes img as a deflate-compressed 16-bit TIFF.
func WriteTIFF(w io.Writer, img image.Image) error {
	if err := tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true}); err != nil {
		return fmt.Errorf("debugviz: encode tiff: %w", err)
	}
	return nil
}

// SaveTIFF writes img to a TIFF file.
func SaveTIFF(path string, img image.Image) error {
	f, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	return WriteTIFF(f, img)
}

// SavePNG writes img to a PNG file.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	return png.Encode(f, img)
}
