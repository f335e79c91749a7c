package chi

import (
	"time"

	"github.com/docusmart/blacklab/internal/cache"
	"github.com/docusmart/blacklab/internal/domain/search/result"
	corpusuc "github.com/docusmart/blacklab/internal/usecase/corpus"
	searchuc "github.com/docusmart/blacklab/internal/usecase/search"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest        = "bad_request"
	CodeUnauthorized      = "unauthorized"
	CodeInvalidQuery      = "invalid_query"
	CodeNotFound          = "not_found"
	CodeSearchTimeout     = "search_timeout"
	CodeSearchInterrupted = "search_interrupted"
	CodeInternalError     = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SpanResponse is a captured group position.
type SpanResponse struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// HitResponse is one hit with its context.
type HitResponse struct {
	Doc     int                     `json:"doc"`
	DocName string                  `json:"doc_name"`
	Start   int                     `json:"start"`
	End     int                     `json:"end"`
	Left    []string                `json:"left"`
	Match   []string                `json:"match"`
	Right   []string                `json:"right"`
	Groups  map[string]SpanResponse `json:"captured_groups,omitempty"`
}

// WindowResponse describes the returned page.
type WindowResponse struct {
	First       int  `json:"first"`
	Requested   int  `json:"requested"`
	Actual      int  `json:"actual"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// SampleResponse echoes the sampling parameters.
type SampleResponse struct {
	Percentage float64 `json:"percentage,omitempty"`
	Number     int     `json:"number,omitempty"`
	Seed       uint64  `json:"seed"`
}

// SummaryResponse describes the search behind a response.
type SummaryResponse struct {
	Pattern           string          `json:"pattern"`
	HitsProcessed     int             `json:"hits_processed"`
	HitsRetrieved     int             `json:"hits_retrieved"`
	DocsRetrieved     int             `json:"docs_retrieved"`
	StillCounting     bool            `json:"still_counting"`
	StoppedRetrieving bool            `json:"stopped_retrieving"`
	StoppedCounting   bool            `json:"stopped_counting"`
	Window            *WindowResponse `json:"window,omitempty"`
	Sample            *SampleResponse `json:"sample,omitempty"`
}

// HitsResponse is the body of GET /corpora/{corpus}/hits.
type HitsResponse struct {
	Summary SummaryResponse `json:"summary"`
	Hits    []HitResponse   `json:"hits"`
}

// CountResponse is the body of GET /corpora/{corpus}/hits/count.
type CountResponse struct {
	Summary SummaryResponse `json:"summary"`
}

// GroupResponse is one group of hits.
type GroupResponse struct {
	Identity string        `json:"identity"`
	Size     int           `json:"size"`
	Hits     []HitResponse `json:"hits"`
}

// GroupsResponse is the body of GET /corpora/{corpus}/hits/groups.
type GroupsResponse struct {
	Summary    SummaryResponse `json:"summary"`
	GroupCount int             `json:"group_count"`
	Groups     []GroupResponse `json:"groups"`
}

// CorpusResponse describes a searchable corpus.
type CorpusResponse struct {
	Name      string `json:"name"`
	Documents int    `json:"documents"`
}

// CacheEntryResponse describes one cached search.
type CacheEntryResponse struct {
	Key        string    `json:"key"`
	State      string    `json:"state"`
	FutureID   string    `json:"future_id"`
	Created    time.Time `json:"created"`
	LastAccess time.Time `json:"last_access"`
	WaitMs     int64     `json:"wait_ms"`
	RunMs      int64     `json:"run_ms"`
	SizeBytes  int64     `json:"size_bytes"`
}

// CacheResponse is the body of GET /cache.
type CacheResponse struct {
	Entries      int                  `json:"entries"`
	InFlight     int                  `json:"in_flight"`
	Queued       int                  `json:"queued"`
	Running      int                  `json:"running"`
	OldestAgeSec float64              `json:"oldest_age_sec"`
	SizeBytes    int64                `json:"size_bytes"`
	Hits         int64                `json:"hits"`
	Misses       int64                `json:"misses"`
	Timeouts     int64                `json:"timeouts"`
	Searches     []CacheEntryResponse `json:"searches,omitempty"`
}

// ClearResponse reports how many entries were dropped.
type ClearResponse struct {
	Removed int `json:"removed"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Cache  CacheResponse     `json:"cache"`
}

func summaryToResponse(s result.Summary) SummaryResponse {
	out := SummaryResponse{
		Pattern:           s.Pattern,
		HitsProcessed:     s.Processed,
		HitsRetrieved:     s.Retrieved,
		DocsRetrieved:     s.Docs,
		StillCounting:     s.StillCounting,
		StoppedRetrieving: s.MaxStats.RetrieveExceeded,
		StoppedCounting:   s.MaxStats.CountExceeded,
	}
	if w := s.Window; w != nil {
		out.Window = &WindowResponse{
			First:       w.First,
			Requested:   w.Requested,
			Actual:      w.Actual,
			HasNext:     w.HasNext,
			HasPrevious: w.HasPrevious(),
		}
	}
	if p := s.Sample; p != nil {
		out.Sample = &SampleResponse{Percentage: p.Percentage * 100, Number: p.Number, Seed: p.Seed}
	}
	return out
}

func hitsToResponse(rows []result.Result) []HitResponse {
	out := make([]HitResponse, len(rows))
	for i := range rows {
		r := &rows[i]
		h := HitResponse{
			Doc:     r.Doc(),
			DocName: r.DocName(),
			Start:   r.Start(),
			End:     r.End(),
			Left:    r.Left(),
			Match:   r.Match(),
			Right:   r.Right(),
		}
		if g := r.Groups(); len(g) > 0 {
			h.Groups = make(map[string]SpanResponse, len(g))
			for name, span := range g {
				h.Groups[name] = SpanResponse{Start: span.Start, End: span.End}
			}
		}
		out[i] = h
	}
	return out
}

func groupsToResponse(resp searchuc.Response) GroupsResponse {
	out := GroupsResponse{
		Summary:    summaryToResponse(resp.Summary),
		GroupCount: resp.GroupCount,
		Groups:     make([]GroupResponse, len(resp.Groups)),
	}
	for i, g := range resp.Groups {
		out.Groups[i] = GroupResponse{Identity: g.Identity, Size: g.Size, Hits: hitsToResponse(g.Hits)}
	}
	return out
}

func corporaToResponse(list []corpusuc.Info) []CorpusResponse {
	out := make([]CorpusResponse, len(list))
	for i, c := range list {
		out[i] = CorpusResponse{Name: c.Name, Documents: c.Documents}
	}
	return out
}

func cacheStatusToResponse(st cache.Status) CacheResponse {
	return CacheResponse{
		Entries:      st.Entries,
		InFlight:     st.InFlight,
		Queued:       st.Queued,
		Running:      st.Running,
		OldestAgeSec: st.OldestAge.Seconds(),
		SizeBytes:    st.SizeBytes,
		Hits:         st.Hits,
		Misses:       st.Misses,
		Timeouts:     st.Timeouts,
	}
}

func cacheEntryToResponse(e *cache.Entry) CacheEntryResponse {
	return CacheEntryResponse{
		Key:        e.Key(),
		State:      e.State(),
		FutureID:   e.FutureID(),
		Created:    e.Created(),
		LastAccess: e.LastAccess(),
		WaitMs:     e.WaitTime().Milliseconds(),
		RunMs:      e.RunTime().Milliseconds(),
		SizeBytes:  e.SizeEstimate(),
	}
}
