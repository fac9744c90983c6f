package ratelimit

import "log/slog"

type limiterOpts struct {
	l *slog.Logger
}

type Option interface {
	apply(o *limiterOpts)
}

type optionFunc func(o *limiterOpts)

func (f optionFunc) apply(o *limiterOpts) {
	f(o)
}

// WithLogger attaches a logger used to report aborted waits.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(o *limiterOpts) { o.l = l })
}
