// Package cache shares search results between callers. Identical searches
// join one computation; finished results are kept until they age out or the
// cache grows past its entry limit.
package cache

import (
	"context"
	"time"
)

// Search is an immutable search descriptor. Two searches with equal keys are
// substitutable and share one cache entry.
type Search interface {
	// Key is the canonical description of the search.
	Key() string
	// Index names the index the search reads, for bulk invalidation.
	Index() string
	// Execute computes the result. Derived searches fetch their sources through r.
	Execute(ctx context.Context, r Runner) (Result, error)
}

// Result is a cached search outcome.
type Result interface {
	SizeEstimate() int64
}

// Runner resolves searches through the cache.
type Runner interface {
	Get(ctx context.Context, s Search) (Result, error)
}

// Observer receives cache events. Implementations must be safe for concurrent use.
type Observer interface {
	Request(hit bool)
	Timeout()
	Evicted(reason string, n int)
	Finished(wait, run time.Duration, err error)
}

// NoopObserver ignores every event.
type NoopObserver struct{}

func (NoopObserver) Request(bool)                                 {}
func (NoopObserver) Timeout()                                     {}
func (NoopObserver) Evicted(string, int)                          {}
func (NoopObserver) Finished(time.Duration, time.Duration, error) {}

// Eviction reasons reported to the Observer.
const (
	ReasonAge   = "age"
	ReasonSize  = "size"
	ReasonIndex = "index"
	ReasonClear = "clear"
)
