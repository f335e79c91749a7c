package flight

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Future is the shared handle of one computation. Any number of callers may
// wait on it; the outcome is written once.
type Future[V any] struct {
	id        uuid.UUID
	submitted time.Time
	started   atomic.Int64
	finished  atomic.Int64

	done   chan struct{}
	val    V
	err    error
	cancel context.CancelFunc

	promoteOnce sync.Once
	promoted    chan struct{}
}

func newFuture[V any](cancel context.CancelFunc) *Future[V] {
	return &Future[V]{
		id:        uuid.New(),
		submitted: time.Now(),
		done:      make(chan struct{}),
		cancel:    cancel,
		promoted:  make(chan struct{}),
	}
}

func (f *Future[V]) complete(v V, err error) {
	f.val, f.err = v, err
	f.finished.Store(time.Now().UnixNano())
	close(f.done)
	f.cancel()
}

// promote lets a queued computation run without a pool slot.
func (f *Future[V]) promote() {
	f.promoteOnce.Do(func() { close(f.promoted) })
}

func (f *Future[V]) isPromoted() bool {
	select {
	case <-f.promoted:
		return true
	default:
		return false
	}
}

// Wait blocks until the computation completes or ctx ends. In the latter
// case it returns ctx.Err() and the computation keeps running.
func (f *Future[V]) Wait(ctx context.Context) (V, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Done is closed when the computation completes.
func (f *Future[V]) Done() <-chan struct{} { return f.done }

// IsDone reports whether the computation completed.
func (f *Future[V]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Peek returns the outcome without blocking; ok is false while running.
func (f *Future[V]) Peek() (v V, ok bool, err error) {
	if !f.IsDone() {
		return v, false, nil
	}
	return f.val, true, f.err
}

// Cancel asks the computation to stop. Waiters observe an interrupted error
// once the work notices.
func (f *Future[V]) Cancel() { f.cancel() }

// ID identifies the computation in logs.
func (f *Future[V]) ID() string { return f.id.String() }

// Submitted returns when the computation was registered.
func (f *Future[V]) Submitted() time.Time { return f.submitted }

// Started returns when the work began executing, or the zero time while queued.
func (f *Future[V]) Started() time.Time { return unixNano(f.started.Load()) }

// Finished returns when the work completed, or the zero time while running.
func (f *Future[V]) Finished() time.Time { return unixNano(f.finished.Load()) }

func unixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
