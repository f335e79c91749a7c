package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/docusmart/blacklab/internal/domain"
	"github.com/docusmart/blacklab/internal/flight"
)

// Entry states.
const (
	StatePending = "pending"
	StateReady   = "ready"
	StateFailed  = "failed"
)

// Entry is a cached, possibly still running, search.
type Entry struct {
	search  Search
	future  *flight.Future[Result]
	cache   *Cache
	created time.Time

	lastAccess atomic.Int64
	readyAt    atomic.Int64
}

// Search returns the descriptor the entry was created for.
func (e *Entry) Search() Search { return e.search }

// Key returns the search key.
func (e *Entry) Key() string { return e.search.Key() }

// Wait blocks until the result is available. Outside a running computation
// the wait is bounded by the cache's search time limit; on expiry the caller
// gets ErrSearchTimeout while the computation keeps running and fills the
// entry when it completes.
func (e *Entry) Wait(ctx context.Context) (Result, error) {
	wctx := ctx
	limit := e.cache.cfg.MaxSearchTime
	if limit > 0 && !flight.InWorker(ctx) {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}

	r, err := e.future.Wait(wctx)
	if err == nil || e.future.IsDone() {
		return r, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, domain.Interrupted(ctxErr)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		e.cache.timeouts.Add(1)
		e.cache.obs.Timeout()
		e.cache.log.Info("search timed out, still running",
			zap.String("search_key", e.Key()),
			zap.String("future_id", e.FutureID()),
			zap.Duration("limit", limit),
		)
		return nil, fmt.Errorf("%w after %s: %s", domain.ErrSearchTimeout, limit, e.Key())
	}
	return nil, err
}

// Done is closed when the computation completes.
func (e *Entry) Done() <-chan struct{} { return e.future.Done() }

// Peek returns the outcome without blocking; ok is false while running.
func (e *Entry) Peek() (Result, bool, error) { return e.future.Peek() }

// State returns pending, ready or failed.
func (e *Entry) State() string {
	_, ok, err := e.future.Peek()
	switch {
	case !ok:
		return StatePending
	case err != nil:
		return StateFailed
	default:
		return StateReady
	}
}

// Created returns when the entry was added.
func (e *Entry) Created() time.Time { return e.created }

// LastAccess returns when the entry was last requested.
func (e *Entry) LastAccess() time.Time { return time.Unix(0, e.lastAccess.Load()) }

// ReadyAt returns when the result was recorded, or the zero time.
func (e *Entry) ReadyAt() time.Time {
	n := e.readyAt.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// WaitTime returns how long the computation waited for a worker.
func (e *Entry) WaitTime() time.Duration {
	started := e.future.Started()
	if started.IsZero() {
		return time.Since(e.future.Submitted())
	}
	return started.Sub(e.future.Submitted())
}

// RunTime returns how long the computation ran, or has been running.
func (e *Entry) RunTime() time.Duration {
	started := e.future.Started()
	if started.IsZero() {
		return 0
	}
	if finished := e.future.Finished(); !finished.IsZero() {
		return finished.Sub(started)
	}
	return time.Since(started)
}

// SizeEstimate returns the result's estimated size, or 0 while pending or failed.
func (e *Entry) SizeEstimate() int64 {
	r, ok, err := e.future.Peek()
	if !ok || err != nil || r == nil {
		return 0
	}
	return r.SizeEstimate()
}

// FutureID identifies the underlying computation in logs.
func (e *Entry) FutureID() string { return e.future.ID() }

func (e *Entry) touch(now time.Time) { e.lastAccess.Store(now.UnixNano()) }

func (e *Entry) ready() bool { return e.readyAt.Load() != 0 }
