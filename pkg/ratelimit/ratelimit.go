package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pitkley/watchpost/pkg/common/wplog"

	"golang.org/x/time/rate"
)

// Spec describes a throttle: at most Times successful Acquire calls in any
// window of length Per. The zero Spec disables throttling entirely.
type Spec struct {
	Times uint64
	Per   time.Duration
}

func (s Spec) limit() rate.Limit {
	if s.Times == 0 || s.Per <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(s.Times) / s.Per.Seconds())
}

// Limiter is a precise rate limiter with context support. Slots are spaced
// evenly across the window, so concurrent callers queue instead of racing
// through a burst.
type Limiter struct {
	l       *slog.Logger
	limiter *rate.Limiter

	mu   sync.Mutex
	spec Spec
}

// New returns a limiter that throttles successful Acquire calls to
// spec.Times per spec.Per.
func New(spec Spec, opts ...Option) *Limiter {
	var o limiterOpts
	for _, opt := range opts {
		opt.apply(&o)
	}

	l := o.l
	if l == nil {
		l = wplog.NopLogger()
	}

	return &Limiter{
		l:       l,
		limiter: rate.NewLimiter(spec.limit(), 1),
		spec:    spec,
	}
}

// SetSpec replaces the active throttle. Callers already blocked in Acquire
// finish their wait under the previous refill rate.
func (l *Limiter) SetSpec(spec Spec) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if spec == l.spec {
		return
	}

	l.limiter.SetLimit(spec.limit())
	l.spec = spec
}

// Spec returns the active throttle.
func (l *Limiter) Spec() Spec {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.spec
}

// Acquire blocks until the limiter grants a slot or ctx is done. With the
// zero Spec it returns immediately.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		l.l.DebugContext(ctx, "rate limit wait aborted", wplog.Error(err))
		return err
	}

	return nil
}
