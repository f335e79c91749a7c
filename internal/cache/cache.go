package cache

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/docusmart/blacklab/internal/domain"
	"github.com/docusmart/blacklab/internal/flight"
)

// Config bounds the cache. Zero values disable the corresponding limit.
type Config struct {
	MaxEntries      int
	MaxEntryAge     time.Duration
	MaxSearchTime   time.Duration
	CleanupInterval time.Duration
	Workers         int
}

// Cache maps search keys to entries. Lookups go through a sync.Map; the
// mutex is only taken by bulk operations and housekeeping.
type Cache struct {
	cfg  Config
	log  *zap.Logger
	obs  Observer
	exec *flight.Executor[string, Result]
	now  func() time.Time

	entries sync.Map // string -> *Entry
	count   atomic.Int64
	mu      sync.Mutex

	hits     atomic.Int64
	misses   atomic.Int64
	timeouts atomic.Int64
}

// New returns a cache running searches on cfg.Workers workers.
func New(cfg Config, obs Observer, logger *zap.Logger) *Cache {
	if obs == nil {
		obs = NoopObserver{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		cfg:  cfg,
		log:  logger.Named("cache"),
		obs:  obs,
		exec: flight.NewExecutor[string, Result](cfg.Workers, logger),
		now:  time.Now,
	}
}

// GetAsync returns the entry for s, starting the search if no entry exists.
func (c *Cache) GetAsync(ctx context.Context, s Search) *Entry {
	key := s.Key()
	now := c.now()
	if v, ok := c.entries.Load(key); ok {
		e := v.(*Entry)
		e.touch(now)
		c.hit()
		return e
	}
	return c.start(ctx, s, key, now)
}

// start submits s after a lookup miss. Another request may have stored an
// entry in the meantime; a computation started only for this call is then
// abandoned so it does not run unwatched.
func (c *Cache) start(ctx context.Context, s Search, key string, now time.Time) *Entry {
	future, joined := c.exec.Run(ctx, key, func(ctx context.Context) (Result, error) {
		r, err := s.Execute(ctx, c)
		return r, domain.NewComputationFailure(key, err)
	})
	e := &Entry{search: s, future: future, cache: c, created: now}
	e.touch(now)

	if v, loaded := c.entries.LoadOrStore(key, e); loaded {
		existing := v.(*Entry)
		if !joined {
			c.exec.Abandon(key, future)
		}
		existing.touch(now)
		c.hit()
		return existing
	}
	c.count.Add(1)
	c.misses.Add(1)
	c.obs.Request(false)
	c.log.Debug("search started",
		zap.String("search_key", key),
		zap.String("future_id", future.ID()),
		zap.Bool("joined", joined),
	)
	go c.watch(e)

	if c.cfg.MaxEntries > 0 && c.count.Load() > int64(c.cfg.MaxEntries) {
		go c.Cleanup()
	}
	return e
}

func (c *Cache) hit() {
	c.hits.Add(1)
	c.obs.Request(true)
}

// Get returns the result of s, waiting for it within the search time limit.
func (c *Cache) Get(ctx context.Context, s Search) (Result, error) {
	return c.GetAsync(ctx, s).Wait(ctx)
}

// watch records completion. Interrupted searches and searches over a closed
// index are dropped so the next request starts over; other failures stay
// cached until they age out.
func (c *Cache) watch(e *Entry) {
	<-e.future.Done()
	e.readyAt.Store(c.now().UnixNano())

	_, _, err := e.future.Peek()
	c.obs.Finished(e.WaitTime(), e.RunTime(), err)
	if errors.Is(err, domain.ErrInterruptedSearch) || errors.Is(err, domain.ErrIndexClosed) {
		c.drop(e)
		c.log.Debug("search not cached", zap.String("search_key", e.Key()), zap.Error(err))
		return
	}
	if err != nil {
		c.log.Warn("search failed", zap.String("search_key", e.Key()), zap.Error(err))
	}
}

// drop removes e if the cache still holds it under its key.
func (c *Cache) drop(e *Entry) bool {
	if c.entries.CompareAndDelete(e.Key(), e) {
		c.count.Add(-1)
		return true
	}
	return false
}

// Remove removes and returns the completed entry for s. A missing or still
// running entry is left alone and reported as absent.
func (c *Cache) Remove(s Search) (*Entry, bool) {
	v, ok := c.entries.Load(s.Key())
	if !ok {
		return nil, false
	}
	e := v.(*Entry)
	if !e.future.IsDone() || !c.drop(e) {
		return nil, false
	}
	return e, true
}

// RemoveSearchesForIndex drops every entry reading index. Running searches
// finish unobserved; later requests start fresh computations.
func (c *Cache) RemoveSearchesForIndex(index string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	c.entries.Range(func(_, v any) bool {
		e := v.(*Entry)
		if e.search.Index() == index && c.drop(e) {
			c.exec.Forget(e.Key())
			n++
		}
		return true
	})
	if n > 0 {
		c.obs.Evicted(ReasonIndex, n)
		c.log.Info("removed searches for index", zap.String("index", index), zap.Int("entries", n))
	}
	return n
}

// Clear drops every entry. With cancelRunning, running computations are
// cancelled as well.
func (c *Cache) Clear(cancelRunning bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	c.entries.Range(func(_, v any) bool {
		if c.drop(v.(*Entry)) {
			n++
		}
		return true
	})
	cancelled := 0
	if cancelRunning {
		cancelled = c.exec.CancelAll()
	}
	if n > 0 {
		c.obs.Evicted(ReasonClear, n)
	}
	c.log.Info("cache cleared", zap.Int("entries", n), zap.Int("cancelled", cancelled))
	return n
}

// Cleanup evicts entries older than the age limit, then the least recently
// used entries beyond the entry limit. Evicting a running entry only drops
// the cache's reference to it.
func (c *Cache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var live []*Entry
	aged := 0
	c.entries.Range(func(_, v any) bool {
		e := v.(*Entry)
		if c.cfg.MaxEntryAge > 0 && e.ready() && now.Sub(e.ReadyAt()) > c.cfg.MaxEntryAge {
			if c.drop(e) {
				aged++
			}
			return true
		}
		live = append(live, e)
		return true
	})

	sized := 0
	if c.cfg.MaxEntries > 0 && len(live) > c.cfg.MaxEntries {
		slices.SortFunc(live, func(a, b *Entry) int {
			return cmp.Compare(a.lastAccess.Load(), b.lastAccess.Load())
		})
		for _, e := range live[:len(live)-c.cfg.MaxEntries] {
			if c.drop(e) {
				sized++
			}
		}
	}

	if aged > 0 {
		c.obs.Evicted(ReasonAge, aged)
	}
	if sized > 0 {
		c.obs.Evicted(ReasonSize, sized)
	}
	if aged+sized > 0 {
		c.log.Debug("cache cleanup", zap.Int("aged", aged), zap.Int("lru", sized))
	}
}

// Run performs housekeeping every CleanupInterval until ctx is cancelled.
func (c *Cache) Run(ctx context.Context) error {
	interval := c.cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Cleanup()
		}
	}
}

// Close cancels every running computation.
func (c *Cache) Close() {
	c.exec.Close()
}

// Status is a snapshot of the cache.
type Status struct {
	Entries   int
	InFlight  int
	Queued    int
	Running   int
	OldestAge time.Duration
	SizeBytes int64
	Hits      int64
	Misses    int64
	Timeouts  int64
}

// Status returns current counters.
func (c *Cache) Status() Status {
	now := c.now()
	st := Status{
		InFlight: c.exec.InFlight(),
		Queued:   c.exec.Queued(),
		Running:  c.exec.Running(),
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Timeouts: c.timeouts.Load(),
	}
	c.entries.Range(func(_, v any) bool {
		e := v.(*Entry)
		st.Entries++
		st.SizeBytes += e.SizeEstimate()
		if age := now.Sub(e.created); age > st.OldestAge {
			st.OldestAge = age
		}
		return true
	})
	return st
}

// Entries returns the current entries, most recently used first.
func (c *Cache) Entries() []*Entry {
	var out []*Entry
	c.entries.Range(func(_, v any) bool {
		out = append(out, v.(*Entry))
		return true
	})
	slices.SortFunc(out, func(a, b *Entry) int {
		return cmp.Compare(b.lastAccess.Load(), a.lastAccess.Load())
	})
	return out
}
