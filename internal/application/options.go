package application

import "time"

type options struct {
	now func() time.Time
}

// Option customises LinkService and Resolver.
type Option func(*options)

// WithClock replaces time.Now, mainly so tests can move past expiry times.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
