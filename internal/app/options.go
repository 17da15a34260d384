package app

import "time"

// Option customises a service.
type Option func(*serviceOptions)

type serviceOptions struct {
	now func() time.Time
}

// WithClock replaces time.Now, mostly for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) {
		o.now = now
	}
}

func buildOptions(opts []Option) serviceOptions {
	o := serviceOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
