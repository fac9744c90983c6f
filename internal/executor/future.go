package executor

import "context"

// Mode selects the executor lane a work unit runs on.
type Mode int

const (
	// ModeSync runs the work on the fixed worker pool.
	ModeSync Mode = iota
	// ModeAsync runs the work on its own goroutine, admitted through a
	// weighted semaphore. Meant for long-running checks that would
	// otherwise starve the pool.
	ModeAsync
)

func (m Mode) String() string {
	if m == ModeAsync {
		return "async"
	}

	return "sync"
}

// Work is one unit of execution. The context derives from the executor's
// base context: callers going away stops them awaiting, not the work.
type Work func(ctx context.Context) (any, error)

// Future is the handle returned by Submit. It resolves exactly once; a
// resolved future may carry both a value and an error.
type Future struct {
	done chan struct{}
	val  any
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Await blocks until the future resolves or ctx is cancelled. Cancellation
// abandons the wait only; the underlying work keeps running and may still
// resolve the future for a later caller.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *Future) resolve(val any, err error) {
	f.val = val
	f.err = err
	close(f.done)
}
