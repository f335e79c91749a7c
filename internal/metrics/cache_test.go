package metrics

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/docusmart/blacklab/internal/cache"
	"github.com/docusmart/blacklab/internal/domain"
)

func TestCache_Counters(t *testing.T) {
	m := NewCache(prometheus.NewRegistry(), nil)

	m.Request(true)
	m.Request(true)
	m.Request(false)
	m.Timeout()
	m.Evicted(cache.ReasonSize, 3)
	m.Evicted(cache.ReasonAge, 1)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"hits", testutil.ToFloat64(m.requests.WithLabelValues("hit")), 2},
		{"misses", testutil.ToFloat64(m.requests.WithLabelValues("miss")), 1},
		{"timeouts", testutil.ToFloat64(m.timeouts), 1},
		{"size evictions", testutil.ToFloat64(m.evictions.WithLabelValues("size")), 3},
		{"age evictions", testutil.ToFloat64(m.evictions.WithLabelValues("age")), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %f, want %f", c.name, c.got, c.want)
		}
	}
}

func TestCache_FailureKinds(t *testing.T) {
	m := NewCache(prometheus.NewRegistry(), nil)

	m.Finished(time.Millisecond, 2*time.Millisecond, nil)
	m.Finished(0, time.Second, domain.Interrupted(nil))
	m.Finished(0, time.Second, fmt.Errorf("parse: %w", domain.ErrInvalidQuery))
	m.Finished(0, time.Second, &domain.ComputationFailure{SearchKey: "k", Err: errors.New("io")})

	for kind, want := range map[string]float64{"interrupted": 1, "invalid_query": 1, "engine": 1} {
		if got := testutil.ToFloat64(m.failures.WithLabelValues(kind)); got != want {
			t.Errorf("failures{kind=%q} = %f, want %f", kind, got, want)
		}
	}
	if n := testutil.CollectAndCount(m.run); n != 1 {
		t.Errorf("expected run histogram to be collected, got %d", n)
	}
}

func TestCache_StatusGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCache(reg, func() cache.Status {
		return cache.Status{Entries: 4, InFlight: 2, Queued: 1, OldestAge: 90 * time.Second, SizeBytes: 2048}
	})

	expected := `
# HELP blacklab_cache_entries Entries held by the cache
# TYPE blacklab_cache_entries gauge
blacklab_cache_entries 4
# HELP blacklab_searches_queued Searches waiting for a worker
# TYPE blacklab_searches_queued gauge
blacklab_searches_queued 1
# HELP blacklab_cache_size_bytes Estimated memory held by cached results
# TYPE blacklab_cache_size_bytes gauge
blacklab_cache_size_bytes 2048
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"blacklab_cache_entries", "blacklab_searches_queued", "blacklab_cache_size_bytes")
	if err != nil {
		t.Fatal(err)
	}
}
