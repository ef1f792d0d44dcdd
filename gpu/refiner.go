//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"github.com/gogpu/epipolar"
	"github.com/gogpu/epipolar/internal/kernel"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

const (
	// refineTimeout bounds the wait for one dispatch.
	refineTimeout = 5 * time.Second

	// refinePollInterval is the sleep between completion polls.
	refinePollInterval = 100 * time.Microsecond

	// maxDispatchSlices is the WebGPU default limit on workgroups per
	// dispatch dimension.
	maxDispatchSlices = 65535
)

// ErrNotInitialized is returned by Refine after Destroy.
var ErrNotInitialized = errors.New("gpu_refine: refiner not initialized")

// GPURefiner runs the refinement kernel on a WebGPU device.
// It owns the compute pipeline; buffers are created per dispatch.
type GPURefiner struct {
	mu sync.Mutex

	device hal.Device
	queue  hal.Queue
	layout epipolar.Layout

	shaderModule   hal.ShaderModule
	bindLayout     hal.BindGroupLayout
	pipelineLayout hal.PipelineLayout
	pipeline       hal.ComputePipeline

	// Compiled SPIR-V (cached for verification)
	spirvCode []uint32

	initialized bool
}

// NewGPURefiner compiles the kernel for layout and creates its pipeline.
// Returns an error if the layout is invalid or the device cannot build the
// pipeline.
func NewGPURefiner(device hal.Device, queue hal.Queue, layout epipolar.Layout) (*GPURefiner, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("gpu_refine: device and queue are required")
	}

	r := &GPURefiner{
		device: device,
		queue:  queue,
		layout: layout,
	}
	if err := r.init(); err != nil {
		r.Destroy()
		return nil, err
	}

	epipolar.Logger().Info("gpu_refine: pipeline created",
		"stride", layout.Stride,
		"group_size", layout.GroupSize,
		"criterion", layout.Criterion.String(),
		"spirv_words", len(r.spirvCode),
	)
	return r, nil
}

// NewGPURefinerFromProvider builds a refiner on a device shared by an
// external provider (e.g., gogpu). The provider must also implement
// HalDevice() any and HalQueue() any returning hal.Device and hal.Queue.
func NewGPURefinerFromProvider(provider gpucontext.DeviceProvider, layout epipolar.Layout) (*GPURefiner, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("gpu_refine: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("gpu_refine: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("gpu_refine: provider HalQueue is not hal.Queue")
	}
	return NewGPURefiner(device, queue, layout)
}

func (r *GPURefiner) init() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	source, err := RefineShaderSource(r.layout)
	if err != nil {
		return err
	}
	spirvCode, err := CompileShaderToSPIRV(source)
	if err != nil {
		return fmt.Errorf("gpu_refine: %w", err)
	}
	r.spirvCode = spirvCode

	shaderModule, err := createShaderModule(r.device, "refine_shader", r.spirvCode)
	if err != nil {
		return fmt.Errorf("gpu_refine: failed to create shader module: %w", err)
	}
	r.shaderModule = shaderModule

	if err := r.createBindGroupLayout(); err != nil {
		return err
	}
	if err := r.createPipelineLayout(); err != nil {
		return err
	}
	if err := r.createPipeline(); err != nil {
		return err
	}

	r.initialized = true
	return nil
}

func (r *GPURefiner) createBindGroupLayout() error {
	storage := func(binding uint32, t gputypes.BufferBindingType) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: t},
		}
	}

	layout, err := r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "refine_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageCompute,
				Buffer: &gputypes.BufferBindingLayout{
					Type:           gputypes.BufferBindingTypeUniform,
					MinBindingSize: refineParamsSize,
				},
			},
			storage(1, gputypes.BufferBindingTypeReadOnlyStorage), // coordinates
			storage(2, gputypes.BufferBindingTypeReadOnlyStorage), // camera space z
			storage(3, gputypes.BufferBindingTypeReadOnlyStorage), // in-scattering
			storage(4, gputypes.BufferBindingTypeStorage),         // sources
		},
	})
	if err != nil {
		return fmt.Errorf("gpu_refine: failed to create bind group layout: %w", err)
	}
	r.bindLayout = layout
	return nil
}

func (r *GPURefiner) createPipelineLayout() error {
	layout, err := r.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "refine_pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{r.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("gpu_refine: failed to create pipeline layout: %w", err)
	}
	r.pipelineLayout = layout
	return nil
}

func (r *GPURefiner) createPipeline() error {
	pipeline, err := r.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "refine_pipeline",
		Layout: r.pipelineLayout,
		Compute: hal.ComputeState{
			Module:     r.shaderModule,
			EntryPoint: refineEntryPoint,
		},
	})
	if err != nil {
		return fmt.Errorf("gpu_refine: failed to create refine pipeline: %w", err)
	}
	r.pipeline = pipeline
	return nil
}

// Refine computes interpolation sources on the GPU and writes them to out.
// Entries of off-screen samples keep their previous value. If the dispatch
// fails, or its readback leaves an on-screen sample unbracketed, the CPU
// kernel computes the same result.
func (r *GPURefiner) Refine(in epipolar.Inputs, out *epipolar.SourceMap) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return ErrNotInitialized
	}
	if err := in.Validate(r.layout.Criterion, out); err != nil {
		return fmt.Errorf("gpu_refine: %w", err)
	}

	if err := r.dispatch(&in, out); err != nil {
		epipolar.Logger().Warn("gpu_refine: dispatch failed, using CPU kernel", "err", err)
		r.refineCPU(&in, out)
	}
	return nil
}

// refineCPU runs the CPU kernel one workgroup at a time.
func (r *GPURefiner) refineCPU(in *epipolar.Inputs, out *epipolar.SourceMap) {
	p := epipolar.KernelParams(r.layout, in.Attribs, in.AverageLuminance)
	tex := epipolar.Textures(in, out)
	groupsX := kernel.NumGroups(tex.Width, p.GroupSize)
	for slice := range tex.Height {
		for x := range groupsX {
			kernel.RunGroup(&p, tex, x, slice, nil)
		}
	}
}

// refineBuffers holds the per-dispatch GPU buffers.
type refineBuffers struct {
	params      hal.Buffer
	coordinates hal.Buffer
	camSpaceZ   hal.Buffer
	scattered   hal.Buffer
	sources     hal.Buffer
	staging     hal.Buffer
}

func (r *GPURefiner) destroyBuffers(b *refineBuffers) {
	for _, buf := range []hal.Buffer{b.params, b.coordinates, b.camSpaceZ, b.scattered, b.sources, b.staging} {
		if buf != nil {
			r.device.DestroyBuffer(buf)
		}
	}
}

// createBuffer creates a buffer and uploads data when given. Unused inputs
// are bound to a minimal buffer.
func (r *GPURefiner) createBuffer(label string, data []byte, size uint64, usage gputypes.BufferUsage) (hal.Buffer, error) {
	const minBufSize = 4
	size = max(size, minBufSize)
	buf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s buffer: %w", label, err)
	}
	if len(data) > 0 {
		if err := r.queue.WriteBuffer(buf, 0, data); err != nil {
			r.device.DestroyBuffer(buf)
			return nil, fmt.Errorf("upload %s buffer: %w", label, err)
		}
	}
	return buf, nil
}

func (r *GPURefiner) allocate(in *epipolar.Inputs, out *epipolar.SourceMap) (*refineBuffers, error) {
	storageIn := gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst
	storageOut := gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst

	var depth, scatter []byte
	if in.Depth != nil {
		depth = float32sToBytes(in.Depth.Pix)
	}
	if in.Scattering != nil {
		scatter = float32sToBytes(in.Scattering.Pix)
	}
	// Invalid samples are not written, so the output starts as a copy.
	sources := uint32sToBytes(out.Pix)
	coords := float32sToBytes(in.Coordinates.Pix)

	b := &refineBuffers{}
	specs := []struct {
		target *hal.Buffer
		label  string
		data   []byte
		size   uint64
		usage  gputypes.BufferUsage
	}{
		{&b.params, "refine_params", newRefineParams(in).toBytes(), refineParamsSize,
			gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst},
		{&b.coordinates, "refine_coordinates", coords, uint64(len(coords)), storageIn},
		{&b.camSpaceZ, "refine_cam_space_z", depth, uint64(len(depth)), storageIn},
		{&b.scattered, "refine_scattered", scatter, uint64(len(scatter)), storageIn},
		{&b.sources, "refine_sources", sources, uint64(len(sources)), storageOut},
		{&b.staging, "refine_staging", nil, uint64(len(sources)),
			gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst},
	}
	for _, s := range specs {
		buf, err := r.createBuffer(s.label, s.data, s.size, s.usage)
		if err != nil {
			r.destroyBuffers(b)
			return nil, err
		}
		*s.target = buf
	}
	return b, nil
}

// dispatch runs one refinement pass and reads the sources back into out.
func (r *GPURefiner) dispatch(in *epipolar.Inputs, out *epipolar.SourceMap) error {
	width, slices := in.Coordinates.Width, in.Coordinates.Height
	if slices > maxDispatchSlices {
		return fmt.Errorf("%d slices exceed the dispatch limit %d", slices, maxDispatchSlices)
	}
	groupsX := kernel.NumGroups(width, r.layout.GroupSize)

	bufs, err := r.allocate(in, out)
	if err != nil {
		return err
	}
	defer r.destroyBuffers(bufs)

	entry := func(binding uint32, buf hal.Buffer) gputypes.BindGroupEntry {
		return gputypes.BindGroupEntry{
			Binding: binding,
			Resource: gputypes.BufferBinding{
				Buffer: buf.NativeHandle(),
				Offset: 0,
				Size:   0, // 0 = entire buffer
			},
		}
	}
	bg, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "refine_bind_group",
		Layout: r.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			entry(0, bufs.params),
			entry(1, bufs.coordinates),
			entry(2, bufs.camSpaceZ),
			entry(3, bufs.scattered),
			entry(4, bufs.sources),
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	defer r.device.DestroyBindGroup(bg)

	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "refine_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("refine"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "refine_pass"})
	pass.SetPipeline(r.pipeline)
	pass.SetBindGroup(0, bg, nil)
	//nolint:gosec // group counts are bounded by the texture size
	pass.Dispatch(uint32(groupsX), uint32(slices), 1)
	pass.End()

	size := uint64(4 * len(out.Pix))
	encoder.CopyBufferToBuffer(bufs.sources, bufs.staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: size},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer r.device.FreeCommandBuffer(cmdBuf)

	index, err := r.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := r.waitSubmission(index); err != nil {
		return err
	}

	readback, err := r.readStaging(bufs.staging, size)
	if err != nil {
		return err
	}
	got := make([]uint32, len(out.Pix))
	bytesToUint32s(readback, got)
	if err := checkSources(in.Coordinates, got); err != nil {
		return err
	}
	copyValidSources(in.Coordinates, got, out)

	epipolar.Logger().Debug("gpu_refine: dispatched",
		"groups_x", groupsX,
		"slices", slices,
	)
	return nil
}

// waitSubmission polls the queue until the submission completes or
// refineTimeout elapses.
func (r *GPURefiner) waitSubmission(index uint64) error {
	deadline := time.Now().Add(refineTimeout)
	for r.queue.PollCompleted() < index {
		if time.Now().After(deadline) {
			return fmt.Errorf("GPU timeout after %v", refineTimeout)
		}
		time.Sleep(refinePollInterval)
	}
	return nil
}

// readStaging copies size bytes out of a host-visible buffer.
func (r *GPURefiner) readStaging(staging hal.Buffer, size uint64) ([]byte, error) {
	mapping, err := r.device.MapBuffer(staging, 0, size)
	if err != nil {
		return nil, fmt.Errorf("map staging buffer: %w", err)
	}
	data := make([]byte, size)
	//nolint:gosec // mapping covers size bytes
	copy(data, unsafe.Slice((*byte)(mapping.Ptr), size))
	if err := r.device.UnmapBuffer(staging); err != nil {
		return nil, fmt.Errorf("unmap staging buffer: %w", err)
	}
	return data, nil
}

// checkSources verifies that every on-screen sample of a readback is
// bracketed by its sources: either both sources are the sample, or
// left < sample < right within the slice. A device that dropped the
// dispatch leaves entries that fail this check.
func checkSources(coords *epipolar.CoordinateMap, sources []uint32) error {
	width := coords.Width
	for y := range coords.Height {
		for x := range width {
			if !kernel.IsValidSample(coords.At(x, y)) {
				continue
			}
			i := 2 * (y*width + x)
			left, right := int64(sources[i]), int64(sources[i+1])
			sample := int64(x)
			if left == sample && right == sample {
				continue
			}
			if left >= sample || right <= sample || right >= int64(width) {
				return fmt.Errorf("readback: sample %d of slice %d has sources (%d, %d)", x, y, left, right)
			}
		}
	}
	return nil
}

// copyValidSources stores the entries of on-screen samples in out.
func copyValidSources(coords *epipolar.CoordinateMap, sources []uint32, out *epipolar.SourceMap) {
	width := coords.Width
	for y := range coords.Height {
		for x := range width {
			if !kernel.IsValidSample(coords.At(x, y)) {
				continue
			}
			i := 2 * (y*width + x)
			out.Pix[i], out.Pix[i+1] = sources[i], sources[i+1]
		}
	}
}

// Layout returns the layout the pipeline was compiled for.
func (r *GPURefiner) Layout() epipolar.Layout {
	return r.layout
}

// SPIRVCode returns the compiled kernel.
func (r *GPURefiner) SPIRVCode() []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.spirvCode
}

// IsInitialized reports whether the pipeline is ready.
func (r *GPURefiner) IsInitialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initialized
}

// Destroy releases the pipeline and its layouts.
func (r *GPURefiner) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.device == nil {
		return
	}

	if r.pipeline != nil {
		r.device.DestroyComputePipeline(r.pipeline)
		r.pipeline = nil
	}
	if r.pipelineLayout != nil {
		r.device.DestroyPipelineLayout(r.pipelineLayout)
		r.pipelineLayout = nil
	}
	if r.bindLayout != nil {
		r.device.DestroyBindGroupLayout(r.bindLayout)
		r.bindLayout = nil
	}
	if r.shaderModule != nil {
		r.device.DestroyShaderModule(r.shaderModule)
		r.shaderModule = nil
	}

	r.initialized = false
}
