// Package epipolar implements the sample refinement stage of an epipolar
// light scattering renderer.
//
// # Overview
//
// Epipolar sampling places samples along slices (rays) that radiate from
// the light's projection on screen, the epipole. Only a sparse subset of
// those samples is ray marched; the rest are interpolated between two ray
// marching samples, as long as depth or in-scattered light does not change
// abruptly between them.
//
// This package decides, per sample, whether it must be ray marched or can be
// interpolated and, if so, from which two samples. The result is an
// interpolation source map consumed by the ray marching and interpolation
// passes of the renderer.
//
// # Quick Start
//
//	r, err := epipolar.NewRefiner()
//	if err != nil {
//		return err
//	}
//	defer r.Close()
//
//	out := epipolar.NewSourceMap(coords.Width, coords.Height)
//	stats, err := r.Refine(epipolar.Inputs{
//		Coordinates:      coords,
//		Scattering:       inscatter,
//		AverageLuminance: lum,
//		Attribs:          epipolar.DefaultAttribs(),
//	}, out)
//
// # Layout and Attribs
//
// [Layout] is the compile-time block of the compute kernel: the initial
// sample stride, the workgroup size and the refinement criterion. [Attribs]
// is the runtime block: the refinement threshold, the light's screen
// position, the epipole sampling density and the tone mapping middle gray.
//
// # Execution
//
// Each slice is split into workgroups of Layout.GroupSize samples. A
// workgroup runs one goroutine per sample, packs difference flags into a
// group-shared bitset with atomic OR, synchronizes, and scans the bitset for
// the nearest break on each side of the sample. Workgroups are independent
// and run on a fixed pool of workers. The output is deterministic.
//
// A WebGPU port of the same kernel lives in the gpu sub-package.
//
// # Logging
//
// The package is silent by default. See [SetLogger].
package epipolar
