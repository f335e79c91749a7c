package blacklab

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/docusmart/blacklab/internal/cache"
	dbRedis "github.com/docusmart/blacklab/internal/db/redis"
	"github.com/docusmart/blacklab/internal/metrics"
	"github.com/docusmart/blacklab/internal/repository/forwardindex"
	"github.com/docusmart/blacklab/internal/results"
	corpusuc "github.com/docusmart/blacklab/internal/usecase/corpus"
	healthuc "github.com/docusmart/blacklab/internal/usecase/health"
	searchuc "github.com/docusmart/blacklab/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the blacklab SDK entry point. It owns a search cache, the
// registered corpora and, when configured, a database connection.
type Client struct {
	store     *dbRedis.Store
	cache     *cache.Cache
	corpora   *corpusuc.Service
	searchSvc searchUseCase
	healthSvc healthChecker
	obs       *observer
}

// New creates a Client. Without WithValkey or WithRedis forward indexes are
// kept in memory. The provided context is used for the database readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.workers <= 0 {
		cfg.workers = runtime.NumCPU()
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	c := &Client{obs: obs}
	var fi corpusuc.ForwardIndex = forwardindex.NewMemory()
	var pinger healthuc.DBPinger
	if cfg.driver != "" {
		store, err := createStore(cfg)
		if err != nil {
			return nil, err
		}
		if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("blacklab: database not ready: %w", err)
		}
		c.store = store
		fi = forwardindex.New(store, cfg.keyPrefix)
		pinger = store
	}

	var cacheObs cache.Observer
	if cfg.metricsReg != nil {
		cacheObs = metrics.NewCache(cfg.metricsReg, func() cache.Status { return c.cache.Status() })
	}
	c.cache = cache.New(cache.Config{
		MaxEntries:    cfg.maxEntries,
		MaxEntryAge:   cfg.maxEntryAge,
		MaxSearchTime: cfg.maxSearchTime,
		Workers:       cfg.workers,
	}, cacheObs, cfg.logger)

	c.corpora = corpusuc.New(fi, c.cache, corpusuc.Settings{
		FetchMin:           cfg.fetchMin,
		Max:                results.MaxSettings{MaxRetrieve: cfg.maxRetrieve, MaxCount: cfg.maxCount},
		ContextParallelism: cfg.workers,
	}, cfg.logger)
	c.searchSvc = searchuc.New(c.corpora, c.cache, cfg.contextSize)
	c.healthSvc = healthuc.New(pinger, c.cache, c.corpora)
	return c, nil
}

func createStore(cfg *clientConfig) (*dbRedis.Store, error) {
	switch cfg.driver {
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("blacklab: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("blacklab: unknown driver %q", cfg.driver)
	}
}

// Close cancels running searches and releases all resources.
func (c *Client) Close() {
	c.cache.Close()
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity. It is a no-op without a database.
func (c *Client) Ping(ctx context.Context) (err error) {
	op := c.obs.begin("ping", "")
	defer func() { op.done(err) }()

	if c.store == nil {
		return nil
	}
	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Corpora returns the corpus management service.
func (c *Client) Corpora() *CorpusService {
	return &CorpusService{svc: corpusAdapter{svc: c.corpora}, obs: c.obs}
}

// Search starts a query over the named corpus.
func (c *Client) Search(corpus string) *Query {
	return &Query{corpus: corpus, svc: c.searchSvc, obs: c.obs}
}

// Cache returns a snapshot of the search cache.
func (c *Client) Cache() CacheStatus {
	return cacheStatus(c.cache.Status())
}

// ClearCache drops finished searches; with cancelRunning running ones are
// interrupted and dropped too. It returns the number of entries removed.
func (c *Client) ClearCache(cancelRunning bool) int {
	return c.cache.Clear(cancelRunning)
}
