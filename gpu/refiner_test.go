//go:build !nogpu

package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/epipolar"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice creates a noop device and queue for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

func depthInputs(width, slices int) epipolar.Inputs {
	coords := epipolar.NewCoordinateMap(width, slices)
	depth := epipolar.NewDepthMap(width, slices)
	for y := range slices {
		for x := range width {
			coords.Set(x, y, -0.9+1.8*float32(x)/float32(width), 0.5)
			z := float32(10)
			if (x/11+y)%3 == 0 {
				z = 40
			}
			depth.Set(x, y, z)
		}
	}
	coords.Set(7, 0, 3, 3)
	return epipolar.Inputs{Coordinates: coords, Depth: depth, Attribs: epipolar.DefaultAttribs()}
}

func TestNewGPURefinerRequiresDevice(t *testing.T) {
	if _, err := NewGPURefiner(nil, nil, epipolar.DefaultLayout()); err == nil {
		t.Error("expected error for nil device")
	}
}

func TestNewGPURefinerFromProviderWithoutHAL(t *testing.T) {
	if _, err := NewGPURefinerFromProvider(nil, epipolar.DefaultLayout()); err == nil {
		t.Fatal("expected error for provider without HAL access")
	}
}

func TestNewGPURefinerNoop(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	r, err := NewGPURefiner(device, queue, epipolar.NewLayout(32, epipolar.DepthDifference))
	if err != nil {
		skipOnNagaLimitation(t, err)
		t.Fatalf("NewGPURefiner() error = %v", err)
	}
	if !r.IsInitialized() {
		t.Error("expected initialized refiner")
	}
	if len(r.SPIRVCode()) == 0 {
		t.Error("expected cached SPIR-V")
	}
	if r.SPIRVCode()[0] != 0x07230203 {
		t.Errorf("invalid SPIR-V magic: 0x%08X", r.SPIRVCode()[0])
	}

	r.Destroy()
	if r.IsInitialized() {
		t.Error("expected uninitialized refiner after Destroy")
	}
	err = r.Refine(depthInputs(64, 2), epipolar.NewSourceMap(64, 2))
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Refine() after Destroy error = %v, want ErrNotInitialized", err)
	}
}

func TestNewGPURefinerInvalidLayout(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	_, err := NewGPURefiner(device, queue, epipolar.Layout{Stride: 3, GroupSize: 32})
	if !errors.Is(err, epipolar.ErrInvalidLayout) {
		t.Errorf("NewGPURefiner() error = %v, want ErrInvalidLayout", err)
	}
}

// TestRefineCPUMatchesRefiner checks the fallback path against the
// concurrent CPU refiner.
func TestRefineCPUMatchesRefiner(t *testing.T) {
	layout := epipolar.NewLayout(16, epipolar.DepthDifference)
	in := depthInputs(100, 5)

	cpu, err := epipolar.NewRefiner(epipolar.WithLayout(layout))
	if err != nil {
		t.Fatalf("NewRefiner() error = %v", err)
	}
	defer cpu.Close()

	want := epipolar.NewSourceMap(100, 5)
	if _, err := cpu.Refine(in, want); err != nil {
		t.Fatalf("Refine() error = %v", err)
	}

	r := &GPURefiner{layout: layout}
	got := epipolar.NewSourceMap(100, 5)
	r.refineCPU(&in, got)

	for i := range want.Pix {
		if got.Pix[i] != want.Pix[i] {
			t.Fatalf("entry %d: got %d, want %d", i, got.Pix[i], want.Pix[i])
		}
	}
	if l, rr := got.At(7, 0); l != epipolar.InvalidSourceIndex || rr != epipolar.InvalidSourceIndex {
		t.Errorf("invalid sample written: (%d, %d)", l, rr)
	}
}

// TestGPURefinerRefineNoop runs the full Refine path on the noop device.
// The noop queue executes nothing, so the readback is rejected and the CPU
// kernel must produce the refiner's result with invalid entries untouched.
func TestGPURefinerRefineNoop(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	layout := epipolar.NewLayout(16, epipolar.DepthDifference)
	r, err := NewGPURefiner(device, queue, layout)
	if err != nil {
		skipOnNagaLimitation(t, err)
		t.Fatalf("NewGPURefiner() error = %v", err)
	}
	defer r.Destroy()

	in := depthInputs(100, 5)
	got := epipolar.NewSourceMap(100, 5)
	if err := r.Refine(in, got); err != nil {
		t.Fatalf("Refine() error = %v", err)
	}

	cpu, err := epipolar.NewRefiner(epipolar.WithLayout(layout))
	if err != nil {
		t.Fatalf("NewRefiner() error = %v", err)
	}
	defer cpu.Close()
	want := epipolar.NewSourceMap(100, 5)
	if _, err := cpu.Refine(in, want); err != nil {
		t.Fatalf("Refine() error = %v", err)
	}

	for i := range want.Pix {
		if got.Pix[i] != want.Pix[i] {
			t.Fatalf("entry %d: got %d, want %d", i, got.Pix[i], want.Pix[i])
		}
	}
	if l, rr := got.At(7, 0); l != epipolar.InvalidSourceIndex || rr != epipolar.InvalidSourceIndex {
		t.Errorf("invalid sample written: (%d, %d)", l, rr)
	}
}

func TestCheckSources(t *testing.T) {
	coords := epipolar.NewCoordinateMap(4, 1)
	for x := range 4 {
		coords.Set(x, 0, float32(x)*0.1, 0)
	}
	coords.Set(3, 0, 5, 5)

	tests := []struct {
		name    string
		sources []uint32
		wantErr bool
	}{
		{"bracketed", []uint32{0, 0, 0, 2, 2, 2, 9, 9}, false},
		{"zero readback", []uint32{0, 0, 0, 0, 0, 0, 0, 0}, true},
		{"right past slice", []uint32{0, 0, 0, 4, 2, 2, 0, 0}, true},
		{"left equals sample", []uint32{0, 0, 1, 2, 2, 2, 0, 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkSources(coords, tt.sources)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkSources() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
