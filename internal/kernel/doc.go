// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package kernel is a CPU port of the epipolar sample refinement compute
// shader.
//
// Every sample of an epipolar slice is either a ray marching sample (an
// anchor, interpolated from itself) or is interpolated between two anchors
// that bracket it. The kernel decides which, one workgroup at a time:
//
//  1. Validity: samples projecting outside the screen are skipped.
//  2. Difference flags: each valid sample compares its depth or in-scattered
//     light with its right neighbour and ORs a "similar" bit into a packed
//     group-shared flag store.
//  3. Barrier: all threads of the group wait until the store is complete.
//  4. Interval: the bracketing anchors are found at a fixed stride, reduced
//     near the epipole, with the final anchor of a slice clamped to its last
//     sample.
//  5. Break search: the nearest dissimilar flag to the left and to the right
//     of the sample narrows the bracket.
//  6. Output: (left, right) global indices are written to the source map.
//
// A workgroup is emulated with one goroutine per thread. The flag store is a
// slice of atomic words, and both group barriers are waits on one cyclic
// [Barrier], so the data flow matches the GPU dispatch exactly: initialize, sync, OR, sync,
// read-only scan.
package kernel
