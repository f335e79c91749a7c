package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/docusmart/blacklab/internal/cache"
	"github.com/docusmart/blacklab/internal/domain"
	"github.com/docusmart/blacklab/internal/domain/hit"
	"github.com/docusmart/blacklab/internal/domain/search/filter"
	"github.com/docusmart/blacklab/internal/domain/search/mode"
	"github.com/docusmart/blacklab/internal/domain/search/request"
	"github.com/docusmart/blacklab/internal/logger"
	"github.com/docusmart/blacklab/internal/results"
	corpusuc "github.com/docusmart/blacklab/internal/usecase/corpus"
	healthuc "github.com/docusmart/blacklab/internal/usecase/health"
	searchuc "github.com/docusmart/blacklab/internal/usecase/search"
)

// retryAfterSec is sent with 503 responses for searches that may still finish.
const retryAfterSec = 5

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the search API.
type Server struct {
	search        *searchuc.Service
	corpora       *corpusuc.Service
	cache         *cache.Cache
	health        *healthuc.Service
	metrics       http.Handler
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. metrics may be nil.
func NewServer(
	search *searchuc.Service,
	corpora *corpusuc.Service,
	c *cache.Cache,
	health *healthuc.Service,
	metrics http.Handler,
	log *zap.Logger,
) *Server {
	s := &Server{
		search:  search,
		corpora: corpora,
		cache:   c,
		health:  health,
		metrics: metrics,
		logger:  log,
	}
	s.errorHandlers = []errorHandler{
		retryHandler(domain.ErrSearchTimeout, CodeSearchTimeout),
		retryHandler(domain.ErrInterruptedSearch, CodeSearchInterrupted),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeInvalidQuery),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
	}
	return s
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Get("/corpora", s.ListCorpora)
	r.Route("/corpora/{corpus}", func(r chi.Router) {
		r.Delete("/", s.RemoveCorpus)
		r.Get("/hits", s.SearchHits)
		r.Get("/hits/count", s.CountHits)
		r.Get("/hits/groups", s.GroupHits)
		r.Delete("/cache", s.ClearCorpusCache)
	})
	r.Get("/cache", s.CacheStatus)
	r.Delete("/cache", s.ClearCache)
}

// SearchHits handles GET /corpora/{corpus}/hits.
func (s *Server) SearchHits(w http.ResponseWriter, r *http.Request) {
	resp, ok := s.run(w, r, mode.Hits)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, HitsResponse{
		Summary: summaryToResponse(resp.Summary),
		Hits:    hitsToResponse(resp.Hits),
	})
}

// CountHits handles GET /corpora/{corpus}/hits/count.
func (s *Server) CountHits(w http.ResponseWriter, r *http.Request) {
	resp, ok := s.run(w, r, mode.Count)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Summary: summaryToResponse(resp.Summary)})
}

// GroupHits handles GET /corpora/{corpus}/hits/groups.
func (s *Server) GroupHits(w http.ResponseWriter, r *http.Request) {
	resp, ok := s.run(w, r, mode.Group)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, groupsToResponse(resp))
}

func (s *Server) run(w http.ResponseWriter, r *http.Request, m mode.Mode) (searchuc.Response, bool) {
	req, err := requestFromQuery(r, m)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidQuery, err.Error())
		return searchuc.Response{}, false
	}

	corpus := chi.URLParam(r, "corpus")
	ctx := logger.With(r.Context(), zap.String("corpus", corpus), zap.String("pattern", req.Pattern()))
	resp, err := s.search.Search(ctx, corpus, &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return searchuc.Response{}, false
	}
	return resp, true
}

// ListCorpora handles GET /corpora.
func (s *Server) ListCorpora(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, corporaToResponse(s.corpora.List()))
}

// RemoveCorpus handles DELETE /corpora/{corpus}.
func (s *Server) RemoveCorpus(w http.ResponseWriter, r *http.Request) {
	if err := s.corpora.Remove(r.Context(), chi.URLParam(r, "corpus")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearCorpusCache handles DELETE /corpora/{corpus}/cache.
func (s *Server) ClearCorpusCache(w http.ResponseWriter, r *http.Request) {
	corpus := chi.URLParam(r, "corpus")
	if _, err := s.corpora.Get(corpus); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ClearResponse{Removed: s.cache.RemoveSearchesForIndex(corpus)})
}

// CacheStatus handles GET /cache. With ?searches=true every entry is listed.
func (s *Server) CacheStatus(w http.ResponseWriter, r *http.Request) {
	resp := cacheStatusToResponse(s.cache.Status())
	if r.URL.Query().Get("searches") == "true" {
		for _, e := range s.cache.Entries() {
			resp.Searches = append(resp.Searches, cacheEntryToResponse(e))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ClearCache handles DELETE /cache. With ?cancel=true running searches are cancelled.
func (s *Server) ClearCache(w http.ResponseWriter, r *http.Request) {
	cancel := r.URL.Query().Get("cancel") == "true"
	writeJSON(w, http.StatusOK, ClearResponse{Removed: s.cache.Clear(cancel)})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
		Cache:  cacheStatusToResponse(report.Cache),
	})
}

// requestFromQuery reads a search request from the query string:
// patt, filter (repeatable, property=value), first, number, sample (percent),
// samplenum, sampleseed, group and group_hits.
func requestFromQuery(r *http.Request, m mode.Mode) (request.Request, error) {
	q := r.URL.Query()

	var conds []filter.Condition
	for _, f := range q["filter"] {
		c, err := filter.Parse(f)
		if err != nil {
			return request.Request{}, err
		}
		conds = append(conds, c)
	}
	filters, err := filter.NewExpression(conds...)
	if err != nil {
		return request.Request{}, err
	}

	first, err := intParam(q.Get("first"), "first")
	if err != nil {
		return request.Request{}, err
	}
	number, err := intParam(q.Get("number"), "number")
	if err != nil {
		return request.Request{}, err
	}
	groupHits, err := intParam(q.Get("group_hits"), "group_hits")
	if err != nil {
		return request.Request{}, err
	}
	sample, err := sampleFromQuery(q.Get("sample"), q.Get("samplenum"), q.Get("sampleseed"))
	if err != nil {
		return request.Request{}, err
	}

	var groupBy hit.Property
	if g := q.Get("group"); g != "" {
		if groupBy, err = hit.ParseProperty(g); err != nil {
			return request.Request{}, err
		}
	}

	return request.New(q.Get("patt"), m, filters, first, number, sample, groupBy, groupHits)
}

func sampleFromQuery(percent, number, seed string) (*results.SampleParameters, error) {
	if percent == "" && number == "" {
		return nil, nil
	}
	var p results.SampleParameters
	if percent != "" {
		v, err := strconv.ParseFloat(percent, 64)
		if err != nil {
			return nil, fmt.Errorf("sample must be a number: %w", domain.ErrInvalidQuery)
		}
		p.Percentage = v / 100
	}
	if number != "" {
		v, err := intParam(number, "samplenum")
		if err != nil {
			return nil, err
		}
		p.Number = v
	}
	if seed != "" {
		v, err := strconv.ParseUint(seed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("sampleseed must be an unsigned integer: %w", domain.ErrInvalidQuery)
		}
		p.Seed = v
	}
	return &p, nil
}

func intParam(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", name, domain.ErrInvalidQuery)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrSearchTimeout,
		domain.ErrInterruptedSearch,
		domain.ErrInvalidQuery,
		domain.ErrNotFound,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// retryHandler maps a transient sentinel to 503 with a Retry-After hint.
func retryHandler(sentinel error, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
		writeError(w, http.StatusServiceUnavailable, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err), zap.Bool("retryable", domain.IsRetryable(err)))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
