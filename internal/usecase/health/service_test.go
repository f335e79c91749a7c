package health

import (
	"context"
	"errors"
	"testing"

	"github.com/docusmart/blacklab/internal/cache"
	"github.com/docusmart/blacklab/internal/usecase/corpus"
)

// --- Mocks ---

type mockDBPinger struct {
	err error
}

func (m *mockDBPinger) Ping(_ context.Context) error { return m.err }

type mockCache struct {
	status cache.Status
}

func (m *mockCache) Status() cache.Status { return m.status }

type mockCorpora struct {
	list []corpus.Info
}

func (m *mockCorpora) List() []corpus.Info { return m.list }

func oneCorpus() *mockCorpora {
	return &mockCorpora{list: []corpus.Info{{Name: "news", Documents: 3}}}
}

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockDBPinger{}, &mockCache{status: cache.Status{Entries: 7}}, oneCorpus())
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if r.Checks["database"] != CheckOK {
		t.Errorf("expected database %q, got %q", CheckOK, r.Checks["database"])
	}
	if r.Checks["corpora"] != CheckOK {
		t.Errorf("expected corpora %q, got %q", CheckOK, r.Checks["corpora"])
	}
	if r.Cache.Entries != 7 {
		t.Errorf("expected cache status to be reported, got %+v", r.Cache)
	}
}

func TestCheck_DBError(t *testing.T) {
	svc := New(&mockDBPinger{err: errors.New("conn refused")}, &mockCache{}, oneCorpus())
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["database"] != CheckError {
		t.Errorf("expected database %q, got %q", CheckError, r.Checks["database"])
	}
}

func TestCheck_NoDatabase(t *testing.T) {
	svc := New(nil, &mockCache{}, oneCorpus())
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks["database"]; ok {
		t.Error("database check should be absent when db is nil")
	}
}

func TestCheck_NoCorpora(t *testing.T) {
	svc := New(&mockDBPinger{}, &mockCache{}, &mockCorpora{})
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks["corpora"] != CheckError {
		t.Error("expected corpora error")
	}
}
