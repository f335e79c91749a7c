// Package flight runs keyed computations at most once at a time on a bounded
// worker pool. Callers asking for a key that is already in flight join the
// running computation instead of starting another one.
package flight

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/docusmart/blacklab/internal/domain"
)

// Work computes a value. ctx is cancelled by Future.Cancel, CancelAll and Close.
type Work[V any] func(ctx context.Context) (V, error)

type workerKey struct{}

// InWorker reports whether ctx belongs to a computation started by an Executor.
func InWorker(ctx context.Context) bool {
	v, _ := ctx.Value(workerKey{}).(bool)
	return v
}

// Executor deduplicates concurrent computations by key.
type Executor[K comparable, V any] struct {
	log  *zap.Logger
	sem  *semaphore.Weighted
	base context.Context
	stop context.CancelFunc

	mu      sync.Mutex
	flights map[K]*Future[V]

	queued  atomic.Int64
	running atomic.Int64
}

// NewExecutor returns an executor running at most workers computations at once.
func NewExecutor[K comparable, V any](workers int, logger *zap.Logger) *Executor[K, V] {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base, stop := context.WithCancel(context.Background())
	return &Executor[K, V]{
		log:     logger.Named("flight"),
		sem:     semaphore.NewWeighted(int64(workers)),
		base:    base,
		stop:    stop,
		flights: make(map[K]*Future[V]),
	}
}

// Run returns the in-flight future for key, or starts work under key.
// joined reports whether an existing computation was returned.
//
// The computation's context derives from the executor, not from ctx: a caller
// giving up does not stop a result other callers may share. When ctx belongs
// to a running computation, the new work runs without taking a second pool
// slot, so derived computations cannot starve the pool.
func (e *Executor[K, V]) Run(ctx context.Context, key K, work Work[V]) (f *Future[V], joined bool) {
	nested := InWorker(ctx)

	e.mu.Lock()
	if f, ok := e.flights[key]; ok {
		e.mu.Unlock()
		if nested {
			f.promote()
		}
		return f, true
	}
	runCtx, cancel := context.WithCancel(context.WithValue(e.base, workerKey{}, true))
	f = newFuture[V](cancel)
	if nested {
		f.promote()
	}
	e.flights[key] = f
	e.mu.Unlock()

	go e.execute(runCtx, key, f, work)
	return f, false
}

func (e *Executor[K, V]) execute(ctx context.Context, key K, f *Future[V], work Work[V]) {
	defer e.deregister(key, f)

	release, err := e.acquire(ctx, f)
	if err != nil {
		var zero V
		f.complete(zero, domain.Interrupted(err))
		return
	}
	defer release()

	e.running.Add(1)
	f.started.Store(time.Now().UnixNano())
	v, err := e.call(ctx, key, work)
	e.running.Add(-1)

	if err != nil && ctx.Err() != nil && !errors.Is(err, domain.ErrInterruptedSearch) {
		err = domain.Interrupted(errors.Join(ctx.Err(), err))
	}
	f.complete(v, err)

	e.log.Debug("computation finished",
		zap.String("future_id", f.ID()),
		zap.Any("key", key),
		zap.Duration("wait", f.Started().Sub(f.Submitted())),
		zap.Duration("run", f.Finished().Sub(f.Started())),
		zap.Error(err),
	)
}

// acquire waits for a pool slot. A promoted future stops waiting and runs
// without one.
func (e *Executor[K, V]) acquire(ctx context.Context, f *Future[V]) (func(), error) {
	noop := func() {}
	if f.isPromoted() {
		return noop, nil
	}

	actx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-f.promoted:
			cancel()
		case <-actx.Done():
		}
	}()

	e.queued.Add(1)
	err := e.sem.Acquire(actx, 1)
	e.queued.Add(-1)
	switch {
	case err == nil:
		return func() { e.sem.Release(1) }, nil
	case ctx.Err() == nil && f.isPromoted():
		return noop, nil
	default:
		return nil, err
	}
}

func (e *Executor[K, V]) call(ctx context.Context, key K, work Work[V]) (v V, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("computation panicked",
				zap.Any("key", key),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			err = &domain.ComputationFailure{
				SearchKey: fmt.Sprint(key),
				Err:       fmt.Errorf("panic: %v", r),
			}
		}
	}()
	return work(ctx)
}

// deregister removes key only if it still maps to f; a Forget followed by a
// fresh Run must not be undone by the old computation finishing.
func (e *Executor[K, V]) deregister(key K, f *Future[V]) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.flights[key] == f {
		delete(e.flights, key)
	}
}

// Forget detaches key so that the next Run starts a new computation.
// The detached computation keeps running for its existing waiters.
func (e *Executor[K, V]) Forget(key K) {
	e.mu.Lock()
	delete(e.flights, key)
	e.mu.Unlock()
}

// Abandon cancels f and detaches it from key if key still maps to it.
func (e *Executor[K, V]) Abandon(key K, f *Future[V]) {
	e.deregister(key, f)
	f.Cancel()
}

// CancelAll cancels and forgets every in-flight computation.
func (e *Executor[K, V]) CancelAll() int {
	e.mu.Lock()
	flights := e.flights
	e.flights = make(map[K]*Future[V])
	e.mu.Unlock()

	for _, f := range flights {
		f.Cancel()
	}
	return len(flights)
}

// Close cancels every computation. Work started after Close sees a cancelled context.
func (e *Executor[K, V]) Close() {
	e.stop()
	e.CancelAll()
}

// InFlight returns the number of registered computations, queued or running.
func (e *Executor[K, V]) InFlight() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.flights)
}

// Queued returns the number of computations waiting for a pool slot.
func (e *Executor[K, V]) Queued() int { return int(e.queued.Load()) }

// Running returns the number of computations currently executing.
func (e *Executor[K, V]) Running() int { return int(e.running.Load()) }
