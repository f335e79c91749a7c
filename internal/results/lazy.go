package results

import (
	"context"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/docusmart/blacklab/internal/domain"
)

// gate serializes production and wakes waiting readers when progress is published.
//
// The production lock is a one-slot channel so that acquiring it can be
// combined with waiting for progress and for cancellation in one select.
type gate struct {
	lock    chan struct{}
	waiters atomic.Int32

	mu      sync.Mutex
	changed chan struct{}
}

func newGate() gate {
	return gate{
		lock:    make(chan struct{}, 1),
		changed: make(chan struct{}),
	}
}

// watch returns a channel that is closed at the next notify.
func (g *gate) watch() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.changed
}

func (g *gate) notify() {
	g.mu.Lock()
	close(g.changed)
	g.changed = make(chan struct{})
	g.mu.Unlock()
}

// publish wakes waiting readers after the producer made progress visible.
func (g *gate) publish() {
	if g.waiters.Load() > 0 {
		g.notify()
	}
}

// acquire takes the production lock unless satisfied reports true first.
// The waiter is registered and the progress channel captured before
// satisfied is evaluated, so a publication racing with the check is never lost.
func (g *gate) acquire(ctx context.Context, satisfied func() bool) (bool, error) {
	g.waiters.Add(1)
	defer g.waiters.Add(-1)
	for {
		changed := g.watch()
		if satisfied() {
			return false, nil
		}
		select {
		case g.lock <- struct{}{}:
			return true, nil
		case <-changed:
		case <-ctx.Done():
			return false, domain.Interrupted(ctx.Err())
		}
	}
}

func (g *gate) release() {
	<-g.lock
	g.notify()
}

// goal is what a reader is waiting for. items < 0 means "everything".
type goal struct {
	items     int
	processed int
}

func (g goal) all() bool { return g.items < 0 || g.processed < 0 }

// lazy is the state shared by every lazily produced variant. The owning type
// supplies step, which advances production by one source item while the
// production lock is held.
type lazy[T Item] struct {
	gate gate
	log  appendLog[T]
	step func(ctx context.Context) error

	fetchMin int
	max      MaxSettings
	window   *WindowStats
	sample   *SampleParameters
	groups   *CapturedGroups[T]

	processed        atomic.Int64
	counted          atomic.Int64
	docsRetrieved    atomic.Int64
	docsCounted      atomic.Int64
	retrieveExceeded atomic.Bool
	countExceeded    atomic.Bool
	done             atomic.Bool

	// Written by the production path before done is published.
	err error

	// Guarded by the production lock.
	prevDocRetrieved int
	prevDocCounted   int
}

func newLazy[T Item](o options) *lazy[T] {
	l := &lazy[T]{
		gate:             newGate(),
		fetchMin:         o.fetchMin,
		max:              o.max,
		window:           o.window,
		sample:           o.sample,
		prevDocRetrieved: -1,
		prevDocCounted:   -1,
	}
	if l.fetchMin <= 0 {
		l.fetchMin = DefaultFetchMin
	}
	if o.groupNames != nil {
		l.groups = NewCapturedGroups[T](o.groupNames)
	}
	return l
}

func (l *lazy[T]) reached(g goal) bool {
	if l.done.Load() {
		return true
	}
	if g.all() {
		return false
	}
	if int(l.processed.Load()) < g.processed {
		return false
	}
	return l.log.Len() >= g.items || l.retrieveExceeded.Load()
}

// read advances production until g is reached. Exactly one caller produces at
// a time; the others wait for progress and leave as soon as their own goal
// is met, without waiting for a greedier producer to finish.
func (l *lazy[T]) read(ctx context.Context, g goal) error {
	if l.reached(g) {
		return l.failure()
	}

	// Pull a batch while we hold the lock anyway.
	target := g
	if !g.all() {
		if have := l.log.Len(); g.items > have && g.items-have < l.fetchMin {
			target.items = have + l.fetchMin
		}
		if have := int(l.processed.Load()); g.processed > have && g.processed-have < l.fetchMin {
			target.processed = have + l.fetchMin
		}
	}

	locked, err := l.gate.acquire(ctx, func() bool { return l.reached(g) })
	if err != nil {
		return err
	}
	if !locked {
		return l.failure()
	}
	defer l.gate.release()

	for !l.reached(target) {
		if err := ctx.Err(); err != nil {
			return domain.Interrupted(err)
		}
		if err := l.step(ctx); err != nil {
			return err
		}
	}
	return l.failure()
}

func (l *lazy[T]) failure() error {
	if l.done.Load() {
		return l.err
	}
	return nil
}

// finish marks production as complete. err is replayed to every later reader.
func (l *lazy[T]) finish(err error) {
	l.err = err
	l.done.Store(true)
	l.gate.publish()
}

// countItem records a processed item that passed any filtering.
func (l *lazy[T]) countItem(item T) {
	l.counted.Add(1)
	if doc := item.DocID(); doc != l.prevDocCounted {
		l.docsCounted.Add(1)
		l.prevDocCounted = doc
	}
	l.gate.publish()
}

// keep stores a counted item unless the retrieval cap is reached.
func (l *lazy[T]) keep(item T, groups []Span) {
	if l.max.MaxRetrieve > 0 && l.log.Len() >= l.max.MaxRetrieve {
		l.retrieveExceeded.Store(true)
		l.gate.publish()
		return
	}
	if l.groups != nil && groups != nil {
		l.groups.Put(item, groups)
	}
	l.log.append(item)
	if doc := item.DocID(); doc != l.prevDocRetrieved {
		l.docsRetrieved.Add(1)
		l.prevDocRetrieved = doc
	}
	l.gate.publish()
}

// EnsureRead blocks until at least n items are realized or production is done.
func (l *lazy[T]) EnsureRead(ctx context.Context, n int) error {
	return l.read(ctx, goal{items: n})
}

// Get returns item i, reading as far as needed.
func (l *lazy[T]) Get(ctx context.Context, i int) (T, bool, error) {
	var zero T
	if i < 0 {
		return zero, false, nil
	}
	if err := l.EnsureRead(ctx, i+1); err != nil {
		return zero, false, err
	}
	if i >= l.log.Len() {
		return zero, false, nil
	}
	return l.log.at(i), true, nil
}

// Iterator returns a lazy forward iterator.
func (l *lazy[T]) Iterator(ctx context.Context) *Iterator[T] {
	return newIterator[T](ctx, l)
}

// ProcessedAtLeast reports whether at least n items were processed.
func (l *lazy[T]) ProcessedAtLeast(ctx context.Context, n int) (bool, error) {
	if n < 0 {
		n = 0
	}
	if err := l.read(ctx, goal{processed: n}); err != nil {
		return false, err
	}
	return int(l.processed.Load()) >= n, nil
}

// ProcessedTotal drains production and returns the processed count.
func (l *lazy[T]) ProcessedTotal(ctx context.Context) (int, error) {
	if err := l.read(ctx, goal{items: -1}); err != nil {
		return 0, err
	}
	return int(l.processed.Load()), nil
}

// ProcessedSoFar returns the processed count without blocking.
func (l *lazy[T]) ProcessedSoFar() int { return int(l.processed.Load()) }

// SizeSoFar returns the realized count without blocking.
func (l *lazy[T]) SizeSoFar() int { return l.log.Len() }

// Done reports whether production finished.
func (l *lazy[T]) Done() bool { return l.done.Load() }

// Stats returns a snapshot of the counters.
func (l *lazy[T]) Stats() Stats {
	return Stats{
		Processed:     int(l.processed.Load()),
		Retrieved:     l.log.Len(),
		Counted:       int(l.counted.Load()),
		DocsRetrieved: int(l.docsRetrieved.Load()),
		DocsCounted:   int(l.docsCounted.Load()),
		Done:          l.done.Load(),
		MaxStats: MaxStats{
			RetrieveExceeded: l.retrieveExceeded.Load(),
			CountExceeded:    l.countExceeded.Load(),
		},
	}
}

// WindowStats returns the window description, or nil if this is not a window.
func (l *lazy[T]) WindowStats() *WindowStats { return l.window }

// SampleParameters returns the sample description, or nil if this is not a sample.
func (l *lazy[T]) SampleParameters() *SampleParameters { return l.sample }

// CapturedGroups returns the captured groups, or nil if the query captures none.
func (l *lazy[T]) CapturedGroups() *CapturedGroups[T] { return l.groups }

// SizeEstimate approximates the bytes held by realized items and their groups.
func (l *lazy[T]) SizeEstimate() int64 {
	var zero T
	size := int64(l.log.Len()) * int64(unsafe.Sizeof(zero))
	if l.groups != nil {
		size += l.groups.sizeEstimate()
	}
	return size
}
