// Package metrics exports Prometheus metrics for the search cache and the HTTP API.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/docusmart/blacklab/internal/cache"
	"github.com/docusmart/blacklab/internal/domain"
)

const namespace = "blacklab"

// StatusFunc reports the current cache status for gauges.
type StatusFunc func() cache.Status

// Cache implements cache.Observer on Prometheus collectors.
type Cache struct {
	requests  *prometheus.CounterVec
	timeouts  prometheus.Counter
	evictions *prometheus.CounterVec
	wait      prometheus.Histogram
	run       prometheus.Histogram
	failures  *prometheus.CounterVec
}

var _ cache.Observer = (*Cache)(nil)

// NewCache creates cache metrics on reg. If status is non-nil, gauges for
// entries, in-flight and queued searches, oldest entry age and estimated size
// are read from it at scrape time.
func NewCache(reg prometheus.Registerer, status StatusFunc) *Cache {
	searchBuckets := []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300}
	m := &Cache{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_requests_total",
				Help:      "Cache lookups by result",
			},
			[]string{"result"}, // "hit" / "miss"
		),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_timeouts_total",
			Help:      "Callers that stopped waiting for a still running search",
		}),
		evictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_evictions_total",
				Help:      "Evicted cache entries by reason",
			},
			[]string{"reason"},
		),
		wait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_wait_seconds",
			Help:      "Time searches spent waiting for a worker",
			Buckets:   searchBuckets,
		}),
		run: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_run_seconds",
			Help:      "Time searches spent running",
			Buckets:   searchBuckets,
		}),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_failures_total",
				Help:      "Searches that ended with an error, by kind",
			},
			[]string{"kind"},
		),
	}
	reg.MustRegister(m.requests, m.timeouts, m.evictions, m.wait, m.run, m.failures)
	if status != nil {
		registerStatusGauges(reg, status)
	}
	return m
}

func registerStatusGauges(reg prometheus.Registerer, status StatusFunc) {
	gauge := func(name, help string, value func(cache.Status) float64) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return value(status()) })
	}
	reg.MustRegister(
		gauge("cache_entries", "Entries held by the cache", func(s cache.Status) float64 { return float64(s.Entries) }),
		gauge("searches_in_flight", "Searches queued or running", func(s cache.Status) float64 { return float64(s.InFlight) }),
		gauge("searches_queued", "Searches waiting for a worker", func(s cache.Status) float64 { return float64(s.Queued) }),
		gauge("cache_oldest_entry_age_seconds", "Age of the oldest cache entry", func(s cache.Status) float64 { return s.OldestAge.Seconds() }),
		gauge("cache_size_bytes", "Estimated memory held by cached results", func(s cache.Status) float64 { return float64(s.SizeBytes) }),
	)
}

func (m *Cache) Request(hit bool) {
	if hit {
		m.requests.WithLabelValues("hit").Inc()
		return
	}
	m.requests.WithLabelValues("miss").Inc()
}

func (m *Cache) Timeout() { m.timeouts.Inc() }

func (m *Cache) Evicted(reason string, n int) {
	m.evictions.WithLabelValues(reason).Add(float64(n))
}

func (m *Cache) Finished(wait, run time.Duration, err error) {
	m.wait.Observe(wait.Seconds())
	if run > 0 {
		m.run.Observe(run.Seconds())
	}
	if err != nil {
		m.failures.WithLabelValues(failureKind(err)).Inc()
	}
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrInterruptedSearch):
		return "interrupted"
	case errors.Is(err, domain.ErrInvalidQuery):
		return "invalid_query"
	case errors.Is(err, domain.ErrIndexClosed):
		return "index_closed"
	default:
		return "engine"
	}
}
