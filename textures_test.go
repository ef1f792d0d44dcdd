package epipolar

import "testing"

func TestCoordinateMapSetAt(t *testing.T) {
	m := NewCoordinateMap(4, 3)
	m.Set(2, 1, 0.5, -0.25)
	x, y := m.At(2, 1)
	if x != 0.5 || y != -0.25 {
		t.Errorf("At(2, 1) = (%v, %v), want (0.5, -0.25)", x, y)
	}
	// Row-major with two values per texel.
	if m.Pix[2*(1*4+2)] != 0.5 {
		t.Error("unexpected texel layout")
	}
}

func TestScatterMapSetAt(t *testing.T) {
	m := NewScatterMap(2, 2)
	rgb := [3]float32{1, 2, 3}
	m.Set(1, 1, rgb)
	if got := m.At(1, 1); got != rgb {
		t.Errorf("At(1, 1) = %v, want %v", got, rgb)
	}
	if got := m.At(0, 1); got != ([3]float32{}) {
		t.Errorf("At(0, 1) = %v, want zero", got)
	}
}

func TestDepthMapSetAt(t *testing.T) {
	m := NewDepthMap(3, 2)
	m.Set(2, 1, 7)
	if got := m.At(2, 1); got != 7 {
		t.Errorf("At(2, 1) = %v, want 7", got)
	}
}

func TestNewSourceMapCleared(t *testing.T) {
	m := NewSourceMap(5, 2)
	for i, v := range m.Pix {
		if v != InvalidSourceIndex {
			t.Fatalf("Pix[%d] = %#x, want InvalidSourceIndex", i, v)
		}
	}
	m.Clear(0)
	if l, r := m.At(4, 1); l != 0 || r != 0 {
		t.Errorf("At(4, 1) after Clear(0) = (%d, %d)", l, r)
	}
}

func TestSourceMapIsRayMarching(t *testing.T) {
	m := NewSourceMap(8, 1)
	m.Pix[2*3], m.Pix[2*3+1] = 3, 3
	m.Pix[2*4], m.Pix[2*4+1] = 3, 8

	if !m.IsRayMarching(3, 0) {
		t.Error("sample 3 should be ray marching")
	}
	if m.IsRayMarching(4, 0) {
		t.Error("sample 4 should be interpolated")
	}
	if m.IsRayMarching(5, 0) {
		t.Error("unwritten sample should not be ray marching")
	}
}
