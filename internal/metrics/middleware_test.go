package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestRouter(t *testing.T) (*chi.Mux, *HTTP) {
	t.Helper()
	m := NewHTTP(prometheus.NewRegistry())
	r := chi.NewRouter()
	r.Use(m.Middleware)
	return r, m
}

func TestMiddleware_RecordsDurationAndCount(t *testing.T) {
	r, m := newTestRouter(t)
	r.Get("/corpora/{corpus}/hits", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	for _, corpus := range []string{"a", "b"} {
		req := httptest.NewRequest("GET", "/corpora/"+corpus+"/hits", http.NoBody)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		if rr.Code != 200 {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
	}

	got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/corpora/{corpus}/hits", "200"))
	if got != 2 {
		t.Errorf("expected 2 requests on the route pattern, got %f", got)
	}
	if n := testutil.CollectAndCount(m.duration); n != 1 {
		t.Errorf("expected one duration series, got %d", n)
	}
}

func TestMiddleware_StatusCodes(t *testing.T) {
	r, m := newTestRouter(t)
	r.Get("/ok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/busy", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.WriteHeader(http.StatusOK) // ignored
	})
	r.Get("/error", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	tests := []struct {
		path           string
		expectedStatus string
	}{
		{"/ok", "200"},
		{"/busy", "503"},
		{"/error", "500"},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			req := httptest.NewRequest("GET", tc.path, http.NoBody)
			r.ServeHTTP(httptest.NewRecorder(), req)

			val := testutil.ToFloat64(m.requests.WithLabelValues("GET", tc.path, tc.expectedStatus))
			if val != 1 {
				t.Errorf("expected one request for %s with status %s, got %f", tc.path, tc.expectedStatus, val)
			}
		})
	}
}

func TestMiddleware_UnknownRoute(t *testing.T) {
	r, m := newTestRouter(t)
	r.Get("/known", func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest("GET", "/nope", http.NoBody)
	r.ServeHTTP(httptest.NewRecorder(), req)

	if val := testutil.ToFloat64(m.requests.WithLabelValues("GET", "unknown", "404")); val != 1 {
		t.Errorf("expected unmatched route under \"unknown\", got %f", val)
	}
}
