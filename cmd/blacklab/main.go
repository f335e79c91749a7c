package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/docusmart/blacklab/internal/cache"
	"github.com/docusmart/blacklab/internal/config"
	"github.com/docusmart/blacklab/internal/corpus"
	dbRedis "github.com/docusmart/blacklab/internal/db/redis"
	logpkg "github.com/docusmart/blacklab/internal/logger"
	"github.com/docusmart/blacklab/internal/metrics"
	"github.com/docusmart/blacklab/internal/repository/forwardindex"
	"github.com/docusmart/blacklab/internal/results"
	chiTransport "github.com/docusmart/blacklab/internal/transport/chi"
	corpusuc "github.com/docusmart/blacklab/internal/usecase/corpus"
	healthuc "github.com/docusmart/blacklab/internal/usecase/health"
	searchuc "github.com/docusmart/blacklab/internal/usecase/search"
	"github.com/docusmart/blacklab/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting "+version.String(),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Int("workers", cfg.Search.Workers),
		zap.Bool("db_enabled", cfg.Database.Enabled()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	// Explicit registry, no init()
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Forward index: Redis/Valkey when configured, memory otherwise
	var fi corpusuc.ForwardIndex
	var pinger healthuc.DBPinger
	if cfg.Database.Enabled() {
		// Redis and Valkey speak the same protocol; one rueidis store serves both drivers.
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return fmt.Errorf("create database store: %w", err)
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			return fmt.Errorf("database not ready: %w", err)
		}
		logger.Info("Connected to database", zap.String("driver", cfg.Database.Driver), zap.Strings("addrs", cfg.Database.Addrs))
		fi = forwardindex.New(store, cfg.Database.KeyPrefix)
		pinger = store
	} else {
		fi = forwardindex.NewMemory()
	}

	// Cache; its gauges read the status of the cache they observe.
	var searchCache *cache.Cache
	cacheMetrics := metrics.NewCache(reg, func() cache.Status { return searchCache.Status() })
	searchCache = cache.New(cache.Config{
		MaxEntries:      cfg.Cache.MaxEntries,
		MaxEntryAge:     cfg.Cache.MaxEntryAge(),
		MaxSearchTime:   cfg.Cache.MaxSearchTime(),
		CleanupInterval: cfg.Cache.CleanupInterval(),
		Workers:         cfg.Search.Workers,
	}, cacheMetrics, logger)
	defer searchCache.Close()

	// Use case services
	corpusSvc := corpusuc.New(fi, searchCache, corpusuc.Settings{
		FetchMin: cfg.Search.FetchMin,
		Max: results.MaxSettings{
			MaxRetrieve: cfg.Search.MaxHitsToRetrieve,
			MaxCount:    cfg.Search.MaxHitsToCount,
		},
		ContextParallelism: cfg.Search.ContextParallelism,
	}, logger)
	for _, cc := range cfg.Corpora {
		ix, err := corpus.Load(cc.Name, cc.Path)
		if err != nil {
			return fmt.Errorf("load corpus %s: %w", cc.Name, err)
		}
		if _, err := corpusSvc.Register(ctx, ix); err != nil {
			return fmt.Errorf("register corpus %s: %w", cc.Name, err)
		}
	}
	searchSvc := searchuc.New(corpusSvc, searchCache, cfg.Search.ContextSize)
	healthSvc := healthuc.New(pinger, searchCache, corpusSvc)

	// HTTP server
	server := chiTransport.NewServer(
		searchSvc, corpusSvc, searchCache, healthSvc,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), logger,
	)
	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Handler(cfg.Auth.APIKeys, metrics.NewHTTP(reg).Middleware),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return searchCache.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
