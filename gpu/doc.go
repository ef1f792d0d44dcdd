//go:build !nogpu

// Package gpu runs the sample refinement kernel as a WebGPU compute shader.
//
// The WGSL kernel is specialized per epipolar.Layout (stride, group size and
// criterion are compile-time constants), compiled to SPIR-V with naga and
// dispatched through the wgpu HAL. One workgroup covers GroupSize samples of
// one slice, so a dispatch is NumGroups(width) x slices workgroups.
//
// GPURefiner produces the same source map as epipolar.Refiner. When a
// dispatch fails the refiner logs a warning and falls back to the CPU
// kernel, so callers always get a result.
//
// Build with -tags nogpu to exclude this package's dependencies.
package gpu
