package epipolar

// RefinerOption configures a Refiner during creation.
//
// Example:
//
//	// Default layout: stride 128, in-scattering criterion
//	r, err := epipolar.NewRefiner()
//
//	// Depth criterion with stride 32 on four workers
//	r, err := epipolar.NewRefiner(
//	    epipolar.WithLayout(epipolar.NewLayout(32, epipolar.DepthDifference)),
//	    epipolar.WithWorkers(4),
//	)
type RefinerOption func(*refinerOptions)

// refinerOptions holds optional configuration for Refiner creation.
type refinerOptions struct {
	layout  Layout
	workers int
}

// defaultOptions returns the default refiner options.
func defaultOptions() refinerOptions {
	return refinerOptions{
		layout:  DefaultLayout(),
		workers: 0, // GOMAXPROCS
	}
}

// WithLayout sets the kernel layout. The layout is validated by NewRefiner.
func WithLayout(l Layout) RefinerOption {
	return func(o *refinerOptions) {
		o.layout = l
	}
}

// WithWorkers sets the number of workgroups that run at once.
// Zero or a negative value uses GOMAXPROCS.
func WithWorkers(n int) RefinerOption {
	return func(o *refinerOptions) {
		o.workers = n
	}
}
