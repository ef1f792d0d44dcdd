package exrio

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/gogpu/epipolar"
	"github.com/mrjoshuak/go-openexr/exr"
)

func TestCoordinatesRoundTrip(t *testing.T) {
	m := epipolar.NewCoordinateMap(17, 3)
	for y := range 3 {
		for x := range 17 {
			m.Set(x, y, float32(x)/16-0.5, float32(y)*0.25)
		}
	}
	m.Set(4, 1, -1e6, -1e6)

	path := filepath.Join(t.TempDir(), "coords.exr")
	if err := WriteCoordinates(path, m); err != nil {
		t.Fatalf("WriteCoordinates() error = %v", err)
	}
	got, err := ReadCoordinates(path)
	if err != nil {
		t.Fatalf("ReadCoordinates() error = %v", err)
	}

	if got.Width != 17 || got.Height != 3 {
		t.Fatalf("size = %dx%d, want 17x3", got.Width, got.Height)
	}
	for i := range m.Pix {
		if got.Pix[i] != m.Pix[i] {
			t.Fatalf("Pix[%d] = %v, want %v", i, got.Pix[i], m.Pix[i])
		}
	}
}

func TestDepthRoundTrip(t *testing.T) {
	m := epipolar.NewDepthMap(8, 2)
	for i := range m.Pix {
		m.Pix[i] = float32(i) * 3.5
	}

	path := filepath.Join(t.TempDir(), "depth.exr")
	if err := WriteDepth(path, m, WithCompression(exr.CompressionNone)); err != nil {
		t.Fatalf("WriteDepth() error = %v", err)
	}
	got, err := ReadDepth(path)
	if err != nil {
		t.Fatalf("ReadDepth() error = %v", err)
	}
	for i := range m.Pix {
		if got.Pix[i] != m.Pix[i] {
			t.Fatalf("Pix[%d] = %v, want %v", i, got.Pix[i], m.Pix[i])
		}
	}
}

func TestScatteringHalf(t *testing.T) {
	m := epipolar.NewScatterMap(4, 4)
	for y := range 4 {
		for x := range 4 {
			m.Set(x, y, [3]float32{float32(x) * 0.5, float32(y), 0.125})
		}
	}

	path := filepath.Join(t.TempDir(), "scatter.exr")
	if err := WriteScattering(path, m, WithHalf()); err != nil {
		t.Fatalf("WriteScattering() error = %v", err)
	}
	got, err := ReadScattering(path)
	if err != nil {
		t.Fatalf("ReadScattering() error = %v", err)
	}
	// Values are exactly representable as half floats.
	for i := range m.Pix {
		if math.Abs(float64(got.Pix[i]-m.Pix[i])) > 1e-3 {
			t.Fatalf("Pix[%d] = %v, want %v", i, got.Pix[i], m.Pix[i])
		}
	}
}

func TestSourcesRoundTrip(t *testing.T) {
	m := epipolar.NewSourceMap(5, 2)
	for i := range m.Pix[:10] {
		m.Pix[i] = uint32(i * 7)
	}

	path := filepath.Join(t.TempDir(), "sources.exr")
	if err := WriteSources(path, m); err != nil {
		t.Fatalf("WriteSources() error = %v", err)
	}
	got, err := ReadSources(path)
	if err != nil {
		t.Fatalf("ReadSources() error = %v", err)
	}
	for i := range m.Pix {
		if got.Pix[i] != m.Pix[i] {
			t.Fatalf("Pix[%d] = %d, want %d", i, got.Pix[i], m.Pix[i])
		}
	}
	if l, r := got.At(4, 1); l != epipolar.InvalidSourceIndex || r != epipolar.InvalidSourceIndex {
		t.Errorf("cleared entry = (%d, %d), want InvalidSourceIndex", l, r)
	}
}

func TestReadMissingChannel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "depth.exr")
	if err := WriteDepth(path, epipolar.NewDepthMap(4, 4)); err != nil {
		t.Fatalf("WriteDepth() error = %v", err)
	}
	if _, err := ReadCoordinates(path); !errors.Is(err, ErrMissingChannel) {
		t.Errorf("ReadCoordinates() error = %v, want ErrMissingChannel", err)
	}
}

func TestWriteErrors(t *testing.T) {
	dir := t.TempDir()
	bad := &epipolar.DepthMap{Width: 4, Height: 4, Pix: make([]float32, 3)}
	if err := WriteDepth(filepath.Join(dir, "bad.exr"), bad); err == nil {
		t.Error("expected error for short pixel buffer")
	}
	if err := WriteDepth(filepath.Join(dir, "empty.exr"), epipolar.NewDepthMap(0, 0)); err == nil {
		t.Error("expected error for empty map")
	}
	if _, err := ReadDepth(filepath.Join(dir, "missing.exr")); err == nil {
		t.Error("expected error for missing file")
	}
}
