package fit

// Option configures optimizer passes and cycle schedules.
type Option func(*options)

type options struct {
	observer    Observer
	parallel    bool
	tuneCenters bool
}

func newOptions(opts []Option) options {
	o := options{observer: NopObserver{}}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// WithObserver routes progress events to obs.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithParallel runs the forward and reverse schedules on separate goroutines.
func WithParallel() Option {
	return func(o *options) {
		o.parallel = true
	}
}

// WithCenterTuning adds a center pass after the spread pass of every cycle.
func WithCenterTuning() Option {
	return func(o *options) {
		o.tuneCenters = true
	}
}
