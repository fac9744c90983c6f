// Package executor is the key-deduplicating dispatcher the engine submits
// check runs to. It keeps a sync worker pool and an async lane; an
// in-flight future per key guarantees that concurrent polls of the same
// (check, environment) pair share one execution.
package executor

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"golang.org/x/sync/semaphore"

	"github.com/pitkley/watchpost/pkg/common/wplog"
)

var (
	// ErrSaturated rejects a submission that could not be admitted within
	// the submit timeout. The caller reports it; nothing was started.
	ErrSaturated = errors.New("executor saturated")
	// ErrShutdown rejects submissions after Shutdown began.
	ErrShutdown = errors.New("executor is shut down")
)

const (
	defaultSubmitTimeout     = 5 * time.Second
	defaultAsyncTasks        = 256
	defaultErroredBufferSize = 100
)

type Config struct {
	// SyncWorkers sizes the worker pool, default 2x CPU count.
	SyncWorkers int `json:"sync_workers" yaml:"sync_workers"`
	// SyncQueueSize bounds the pool's backlog, default 2x SyncWorkers.
	SyncQueueSize int `json:"sync_queue_size" yaml:"sync_queue_size"`
	// AsyncTasks caps concurrently running async checks.
	AsyncTasks int64 `json:"async_tasks" yaml:"async_tasks"`
	// SubmitTimeout bounds how long Submit waits for admission before
	// returning ErrSaturated.
	SubmitTimeout time.Duration `json:"submit_timeout" yaml:"submit_timeout"`
	// ErroredBufferSize bounds the retained failure log.
	ErroredBufferSize int `json:"errored_buffer_size" yaml:"errored_buffer_size"`
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.SyncWorkers <= 0 {
		out.SyncWorkers = 2 * runtime.NumCPU()
	}
	if out.SyncQueueSize <= 0 {
		out.SyncQueueSize = 2 * out.SyncWorkers
	}
	if out.AsyncTasks <= 0 {
		out.AsyncTasks = defaultAsyncTasks
	}
	if out.SubmitTimeout <= 0 {
		out.SubmitTimeout = defaultSubmitTimeout
	}
	if out.ErroredBufferSize <= 0 {
		out.ErroredBufferSize = defaultErroredBufferSize
	}

	return out
}

// Statistics are the rolling counters exposed on the HTTP surface.
type Statistics struct {
	Running   uint64 `json:"running"`
	Completed uint64 `json:"completed"`
	Errored   uint64 `json:"errored"`
}

type job struct {
	key      string
	work     Work
	future   *Future
	deadline time.Duration
}

// Executor dispatches work units, deduplicated by key.
type Executor struct {
	l *slog.Logger
	c Config
	m *executorMetrics

	baseCtx    context.Context
	baseCancel context.CancelFunc

	// mu guards the in-flight map, the counters and the errored ring. It
	// is held only at state transitions, never across user code.
	mu         sync.Mutex
	inflight   map[string]*Future
	running    uint64
	completed  uint64
	errored    uint64
	erroredLog *erroredRing

	queue    chan *job
	workers  sync.WaitGroup
	tasks    sync.WaitGroup
	asyncSem *semaphore.Weighted

	// submitGate lets Shutdown wait out in-progress submissions before
	// closing the queue.
	submitGate sync.RWMutex
	stopped    bool
}

type submitOptions struct {
	deadline time.Duration
}

type SubmitOpt interface {
	apply(*submitOptions)
}

type submitOptFunc func(*submitOptions)

func (f submitOptFunc) apply(o *submitOptions) { f(o) }

// WithSoftDeadline cancels the work's context after d. Soft: the work is
// expected to honor cancellation, nothing is killed.
func WithSoftDeadline(d time.Duration) SubmitOpt {
	return submitOptFunc(func(o *submitOptions) { o.deadline = d })
}

func New(c Config, l *slog.Logger) *Executor {
	if l == nil {
		l = wplog.NopLogger()
	}
	c = c.withDefaults()

	baseCtx, baseCancel := context.WithCancel(context.Background())
	e := &Executor{
		l:          l.With(wplog.Component("executor")),
		c:          c,
		m:          newExecutorMetrics(),
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
		inflight:   make(map[string]*Future),
		erroredLog: newErroredRing(c.ErroredBufferSize),
		queue:      make(chan *job, c.SyncQueueSize),
		asyncSem:   semaphore.NewWeighted(c.AsyncTasks),
	}

	for range c.SyncWorkers {
		e.workers.Add(1)
		go e.worker()
	}

	return e
}

func NewFX(c Config, l *slog.Logger, lc fx.Lifecycle) *Executor {
	e := New(c, l)
	lc.Append(fx.StopHook(func(ctx context.Context) error {
		return e.Shutdown(ctx, true)
	}))

	return e
}

// Submit hands work to the executor. If a future for key is already in
// flight, that future is returned and no new work starts: two concurrent
// polls of the same pair share one execution.
func (e *Executor) Submit(key string, mode Mode, work Work, opts ...SubmitOpt) (*Future, error) {
	var o submitOptions
	for _, opt := range opts {
		opt.apply(&o)
	}

	e.submitGate.RLock()
	defer e.submitGate.RUnlock()

	if e.stopped {
		e.m.RejectedShutdown.Inc()
		return nil, ErrShutdown
	}

	e.mu.Lock()
	if f, ok := e.inflight[key]; ok {
		e.mu.Unlock()
		e.m.Deduplicated.Inc()

		return f, nil
	}
	f := newFuture()
	e.inflight[key] = f
	e.running++
	e.mu.Unlock()

	j := &job{key: key, work: work, future: f, deadline: o.deadline}

	var err error
	if mode == ModeAsync {
		e.m.SubmittedAsync.Inc()
		err = e.admitAsync(j)
	} else {
		e.m.SubmittedSync.Inc()
		err = e.enqueueSync(j)
	}
	if err != nil {
		// the future was never started; resolve it with the rejection so
		// a concurrent duplicate submit holding it is not stranded
		e.complete(j.key, j.future, nil, err)

		return nil, err
	}

	return f, nil
}

func (e *Executor) enqueueSync(j *job) error {
	timer := time.NewTimer(e.c.SubmitTimeout)
	defer timer.Stop()

	select {
	case e.queue <- j:
		return nil
	case <-timer.C:
		e.m.Saturated.Inc()
		return errors.Wrapf(ErrSaturated, "sync queue full for %s", e.c.SubmitTimeout)
	case <-e.baseCtx.Done():
		return ErrShutdown
	}
}

func (e *Executor) admitAsync(j *job) error {
	ctx, cancel := context.WithTimeout(e.baseCtx, e.c.SubmitTimeout)
	defer cancel()

	if err := e.asyncSem.Acquire(ctx, 1); err != nil {
		if e.baseCtx.Err() != nil {
			return ErrShutdown
		}
		e.m.Saturated.Inc()

		return errors.Wrapf(ErrSaturated, "async limit %d reached for %s", e.c.AsyncTasks, e.c.SubmitTimeout)
	}

	e.tasks.Add(1)
	go func() {
		defer e.tasks.Done()
		defer e.asyncSem.Release(1)
		e.run(j)
	}()

	return nil
}

func (e *Executor) worker() {
	defer e.workers.Done()
	for j := range e.queue {
		e.run(j)
	}
}

func (e *Executor) run(j *job) {
	start := time.Now()
	defer e.m.RunDuration.UpdateDuration(start)

	ctx := e.baseCtx
	if j.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.deadline)
		defer cancel()
	}

	val, err := e.safeCall(ctx, j.work)
	e.complete(j.key, j.future, val, err)
}

func (e *Executor) safeCall(ctx context.Context, work Work) (val any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("work unit panicked: %v", r)
		}
	}()

	return work(ctx)
}

// complete updates the bookkeeping before resolving the future, so a
// caller returning from Await always observes the updated statistics.
func (e *Executor) complete(key string, f *Future, val any, err error) {
	e.mu.Lock()
	delete(e.inflight, key)
	e.running--
	e.completed++
	if err != nil {
		e.errored++
		e.erroredLog.push(ErroredEntry{Key: key, Error: err.Error(), At: time.Now()})
	}
	e.mu.Unlock()

	f.resolve(val, err)
}

func (e *Executor) Statistics() Statistics {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Statistics{
		Running:   e.running,
		Completed: e.completed,
		Errored:   e.errored,
	}
}

// Errored returns the retained failures, oldest first.
func (e *Executor) Errored() []ErroredEntry {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.erroredLog.snapshot()
}

// Shutdown stops accepting work. With drain, queued and running work
// finishes first; without, the base context is cancelled and work is
// expected to return promptly. Every already-issued future still resolves.
func (e *Executor) Shutdown(ctx context.Context, drain bool) error {
	if !drain {
		// unblock admissions waiting on queue space or the semaphore
		e.baseCancel()
	}

	e.submitGate.Lock()
	if e.stopped {
		e.submitGate.Unlock()
		return nil
	}
	e.stopped = true
	close(e.queue)
	e.submitGate.Unlock()

	e.l.Info("executor shutting down", slog.Bool("drain", drain))

	done := make(chan struct{})
	go func() {
		e.workers.Wait()
		e.tasks.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.baseCancel()
		return nil
	case <-ctx.Done():
		e.baseCancel()
		return errors.Wrap(ctx.Err(), "executor shutdown timed out")
	}
}
