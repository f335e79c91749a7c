package health

import (
	"context"

	"github.com/docusmart/blacklab/internal/cache"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	Cache  cache.Status
}

// Service coordinates health checks.
type Service struct {
	db      DBPinger
	cache   CacheStatus
	corpora CorpusLister
}

// New creates a Service. db can be nil when no database is configured.
func New(db DBPinger, c CacheStatus, corpora CorpusLister) *Service {
	return &Service{db: db, cache: c, corpora: corpora}
}

// Check runs health checks against all components. Without any corpus
// nothing can be searched, so the service is unhealthy.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			checks["database"] = CheckError
		} else {
			checks["database"] = CheckOK
		}
	}

	if len(s.corpora.List()) == 0 {
		checks["corpora"] = CheckError
	} else {
		checks["corpora"] = CheckOK
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks["corpora"] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks, Cache: s.cache.Status()}
}
