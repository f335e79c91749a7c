package blacklab

import (
	"context"

	"github.com/docusmart/blacklab/internal/cache"
	healthuc "github.com/docusmart/blacklab/internal/usecase/health"
)

// HealthStatus reports whether the client can serve searches.
// Status is "error" while no corpus is registered and "degraded" when the
// database check fails.
type HealthStatus struct {
	Status  string
	Checks  map[string]string // "database" (only with a database), "corpora"
	Corpora []CorpusInfo
	Cache   CacheStatus
}

// Ready reports whether searches can be served.
func (h HealthStatus) Ready() bool { return h.Status != string(healthuc.Unhealthy) }

type healthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Health checks the database, the registered corpora and the search cache.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	h := HealthStatus{
		Status:  string(report.Status),
		Checks:  make(map[string]string, len(report.Checks)),
		Corpora: corpusAdapter{svc: c.corpora}.List(),
		Cache:   cacheStatus(report.Cache),
	}
	for name, res := range report.Checks {
		h.Checks[name] = string(res)
	}
	return h
}

func cacheStatus(st cache.Status) CacheStatus {
	return CacheStatus{
		Entries:   st.Entries,
		Running:   st.Running,
		Queued:    st.Queued,
		SizeBytes: st.SizeBytes,
		Hits:      st.Hits,
		Misses:    st.Misses,
	}
}
