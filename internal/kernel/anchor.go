// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package kernel

import "math"

// Interval is the pair of anchors bracketing a sample, in group-local
// indices. Anchor0 <= sample <= Anchor1.
type Interval struct {
	Anchor0 int
	Anchor1 int

	// Stride is the active anchor spacing: Params.Stride, or the reduced
	// stride near the epipole.
	Stride int
}

// Contains reports whether local lies strictly between the anchors, i.e.
// whether it needs a break search at all.
func (iv Interval) Contains(local int) bool {
	return local > iv.Anchor0 && local < iv.Anchor1
}

// Interval returns the anchors bracketing the group-local sample.
//
//	                            Stride
//	      local               |<--------->|
//	        |                 |           |
//	     X  *  *  *  X  *  *  *  X  *  *  *  X     X - anchors
//	     |           |
//	  Anchor0     Anchor1
//
// Near the epipole the stride is divided by the density factor. The upper
// anchor never leaves the group, and in the last group of a slice it is
// clamped to the last sample so that sample is always ray marched.
func (g *Group) Interval(local int) Interval {
	stride := g.p.Stride
	a0 := local / stride * stride
	if g.nearEpipole(g.base + a0) {
		stride = max(g.p.Stride/int(g.p.DensityFactor), 1)
		a0 = local / stride * stride
	}

	a1 := min(a0+stride, g.p.GroupSize)
	if g.lastGroup {
		a1 = min(a1, g.lastLocal)
	}
	return Interval{Anchor0: a0, Anchor1: a1, Stride: stride}
}

// nearEpipole reports whether the anchor at a global index lies in the
// first part of the slice and close to the light's screen position, where
// scattering varies quickly but ray marching is cheap.
func (g *Group) nearEpipole(global int) bool {
	if float32(global)/float32(g.tex.Width) >= g.p.EpipoleBudgetFraction {
		return false
	}
	x, y, ok := g.tex.Coord(global, g.slice)
	if !ok {
		return false
	}
	dx := float64(x - g.p.LightScreenPos[0])
	dy := float64(y - g.p.LightScreenPos[1])
	return math.Hypot(dx, dy) < float64(g.p.EpipoleRadius)
}
