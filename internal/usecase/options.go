package usecase

import "time"

// Option tunes a use case at construction time.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now; tests use it to pin "now".
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
