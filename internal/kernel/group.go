// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package kernel

import (
	"sync"
	"sync/atomic"
)

// Counters accumulates per-dispatch statistics. Safe for concurrent use by
// all groups of a dispatch.
type Counters struct {
	Valid        atomic.Int64
	RayMarching  atomic.Int64
	Interpolated atomic.Int64
}

// Group is the execution context of one workgroup. It owns the group-shared
// flag store; nothing in it outlives RunGroup.
type Group struct {
	p   *Params
	tex *Textures

	slice int

	// base is the global index of local sample 0.
	base int

	// lastLocal is the last local index backed by a texel.
	lastLocal int
	lastGroup bool

	floor [3]float32

	flags   *FlagStore
	barrier *Barrier

	// scratch holds one flag snapshot per thread.
	scratch []uint32
}

// NewGroup prepares workgroup (groupX, slice) of a dispatch.
func NewGroup(p *Params, tex *Textures, groupX, slice int) *Group {
	base := groupX * p.GroupSize
	flags := NewFlagStore(p.GroupSize)
	return &Group{
		p:         p,
		tex:       tex,
		slice:     slice,
		base:      base,
		lastLocal: min(p.GroupSize, tex.Width-base) - 1,
		lastGroup: groupX == NumGroups(tex.Width, p.GroupSize)-1,
		floor:     InscatterFloor(p.AverageLuminance, p.MiddleGray),
		flags:     flags,
		barrier:   NewBarrier(p.GroupSize),
		scratch:   make([]uint32, p.GroupSize*flags.Len()),
	}
}

// RunGroup executes workgroup (groupX, slice) to completion. c may be nil.
func RunGroup(p *Params, tex *Textures, groupX, slice int, c *Counters) {
	NewGroup(p, tex, groupX, slice).Run(c)
}

// Run launches one goroutine per thread and waits for all of them.
// Every thread takes part in both barriers, valid or not.
func (g *Group) Run(c *Counters) {
	var wg sync.WaitGroup
	wg.Add(g.p.GroupSize)
	for local := range g.p.GroupSize {
		go func() {
			defer wg.Done()
			g.thread(local, c)
		}()
	}
	wg.Wait()
}

func (g *Group) thread(local int, c *Counters) {
	global := g.base + local
	x, y, ok := g.tex.Coord(global, g.slice)
	valid := ok && IsValidSample(x, y)

	if local < g.flags.Len() {
		g.flags.Reset(local)
	}
	g.barrier.Wait()

	// An invalid sample leaves its own flag zero: a break between it and
	// its right neighbour. The break between a valid sample and an invalid
	// right neighbour comes from the sentinel values upstream stores in
	// the invalid texels.
	if valid {
		g.flags.Or(local, g.similar(global))
	}
	g.barrier.Wait()

	if !valid {
		return
	}

	left, right := g.Resolve(local)
	//nolint:gosec // indices are bounded by the texture width
	g.tex.writeSource(global, g.slice, uint32(g.base+left), uint32(g.base+right))

	if c != nil {
		c.Valid.Add(1)
		if left == right {
			c.RayMarching.Add(1)
		} else {
			c.Interpolated.Add(1)
		}
	}
}

// similar computes the difference flag between a sample and its right
// neighbour. A neighbour past the end of the slice is a break.
func (g *Group) similar(global int) bool {
	switch g.p.Criterion {
	case CriterionDepthDiff:
		z0, _ := g.tex.Depth(global, g.slice)
		z1, ok := g.tex.Depth(global+1, g.slice)
		return ok && DepthSimilar(z0, z1, g.p.RefinementThreshold)
	default:
		c0, _ := g.tex.Inscattering(global, g.slice)
		c1, ok := g.tex.Inscattering(global+1, g.slice)
		return ok && InscatterSimilar(c0, c1, g.floor, g.p.RefinementThreshold)
	}
}

// Resolve returns the group-local interpolation sources of a sample. It must
// only be called after the second barrier.
func (g *Group) Resolve(local int) (left, right int) {
	iv := g.Interval(local)
	if !iv.Contains(local) {
		return local, local
	}
	n := g.flags.Len()
	words := g.flags.Snapshot(g.scratch[local*n : (local+1)*n])
	return ResolveSources(words, local, iv)
}
