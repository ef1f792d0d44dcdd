package epipolar

import (
	"fmt"

	"github.com/gogpu/epipolar/internal/kernel"
	"github.com/gogpu/epipolar/internal/parallel"
)

// Stats summarizes one refinement dispatch.
type Stats struct {
	// Groups is the number of workgroups dispatched.
	Groups int

	// Valid is the number of on-screen samples, i.e. written entries.
	Valid int

	// RayMarching is the number of samples interpolated from themselves.
	RayMarching int

	// Interpolated is the number of samples with two distinct sources.
	Interpolated int
}

// Refiner runs the sample refinement kernel on the CPU.
//
// A Refiner holds no per-dispatch state: every call to Refine is a pure
// function of its inputs. Refine may be called concurrently.
type Refiner struct {
	layout     Layout
	dispatcher *parallel.Dispatcher
}

// NewRefiner creates a refiner. It fails with ErrInvalidLayout if the
// configured layout cannot be run.
func NewRefiner(opts ...RefinerOption) (*Refiner, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.layout.Validate(); err != nil {
		return nil, err
	}

	r := &Refiner{
		layout:     o.layout,
		dispatcher: parallel.NewDispatcher(o.workers),
	}
	Logger().Debug("epipolar: refiner created",
		"stride", o.layout.Stride,
		"group_size", o.layout.GroupSize,
		"criterion", o.layout.Criterion.String(),
		"workers", r.dispatcher.Workers(),
	)
	return r, nil
}

// Layout returns the refiner's kernel layout.
func (r *Refiner) Layout() Layout {
	return r.layout
}

// Refine computes the interpolation sources of every on-screen sample and
// writes them to out. Entries of off-screen samples are left untouched, so
// out should be cleared (NewSourceMap does) before the call.
func (r *Refiner) Refine(in Inputs, out *SourceMap) (Stats, error) {
	if err := in.Validate(r.layout.Criterion, out); err != nil {
		return Stats{}, err
	}

	p := KernelParams(r.layout, in.Attribs, in.AverageLuminance)
	tex := Textures(&in, out)
	groupsX := kernel.NumGroups(tex.Width, p.GroupSize)

	Logger().Debug("epipolar: refine dispatch",
		"width", tex.Width,
		"slices", tex.Height,
		"groups_x", groupsX,
	)

	var c kernel.Counters
	err := r.dispatcher.Dispatch(groupsX, tex.Height, func(id parallel.GroupID) {
		kernel.RunGroup(&p, tex, id.X, id.Y, &c)
	})
	if err != nil {
		return Stats{}, fmt.Errorf("epipolar: refine: %w", err)
	}

	stats := Stats{
		Groups:       groupsX * tex.Height,
		Valid:        int(c.Valid.Load()),
		RayMarching:  int(c.RayMarching.Load()),
		Interpolated: int(c.Interpolated.Load()),
	}
	Logger().Debug("epipolar: refine done",
		"groups", stats.Groups,
		"valid", stats.Valid,
		"ray_marching", stats.RayMarching,
		"interpolated", stats.Interpolated,
	)
	return stats, nil
}

// Close stops the refiner's workers. Refine fails after Close.
func (r *Refiner) Close() {
	r.dispatcher.Close()
}

// Textures binds the inputs and the output map as kernel textures.
// Textures not needed by the criterion may be nil.
func Textures(in *Inputs, out *SourceMap) *kernel.Textures {
	tex := &kernel.Textures{
		Width:   in.Coordinates.Width,
		Height:  in.Coordinates.Height,
		Coords:  in.Coordinates.Pix,
		Sources: out.Pix,
	}
	if in.Depth != nil {
		tex.CamSpaceZ = in.Depth.Pix
	}
	if in.Scattering != nil {
		tex.Scattered = in.Scattering.Pix
	}
	return tex
}
