package search

import (
	"context"
	"fmt"

	"github.com/docusmart/blacklab/internal/domain/hit"
	"github.com/docusmart/blacklab/internal/domain/search/mode"
	"github.com/docusmart/blacklab/internal/domain/search/request"
	"github.com/docusmart/blacklab/internal/domain/search/result"
	"github.com/docusmart/blacklab/internal/results"
	"github.com/docusmart/blacklab/internal/searches"
)

// DefaultContextSize is the number of tokens shown on each side of a hit.
const DefaultContextSize = 5

// Response is the outcome of a search request. Hits is set for mode=hits,
// Groups for mode=group.
type Response struct {
	Summary    result.Summary
	Hits       []result.Result
	Groups     []result.Group
	GroupCount int
}

// Service turns requests into cached search pipelines.
type Service struct {
	corpora     Corpora
	cache       Cache
	contextSize int
}

// New creates a search service. contextSize <= 0 selects DefaultContextSize.
func New(corpora Corpora, c Cache, contextSize int) *Service {
	if contextSize <= 0 {
		contextSize = DefaultContextSize
	}
	return &Service{corpora: corpora, cache: c, contextSize: contextSize}
}

// Search runs req over the named corpus.
func (s *Service) Search(ctx context.Context, corpusName string, req *request.Request) (Response, error) {
	c, err := s.corpora.Get(corpusName)
	if err != nil {
		return Response{}, fmt.Errorf("get corpus: %w", err)
	}
	source := pipeline(c, req)

	switch req.Mode() {
	case mode.Hits:
		return s.hits(ctx, c, source, req)
	case mode.Count:
		return s.count(ctx, source, req)
	case mode.Group:
		return s.group(ctx, c, source, req)
	default:
		return Response{}, fmt.Errorf("unsupported view mode: %s", req.Mode())
	}
}

// pipeline builds find, then one filter per condition, then the optional sample.
func pipeline(c *searches.Corpus, req *request.Request) searches.HitsSearch {
	var s searches.HitsSearch = searches.Find{Corpus: c, Pattern: req.Pattern()}
	for _, cond := range req.Filters().Conditions() {
		s = searches.Filter{Source: s, Corpus: c, Property: cond.Property(), Value: cond.Value()}
	}
	if p := req.Sample(); p != nil {
		s = searches.Sample{Source: s, Params: *p}
	}
	return s
}

// hits returns one page. Counting the full result continues in the
// background so a following page request can report the total.
func (s *Service) hits(ctx context.Context, c *searches.Corpus, source searches.HitsSearch, req *request.Request) (Response, error) {
	win, err := s.cache.Get(ctx, searches.Window{Source: source, First: req.First(), Size: req.Number()})
	if err != nil {
		return Response{}, fmt.Errorf("window: %w", err)
	}
	page := win.(searches.HitResults)

	full, err := s.cache.Get(ctx, source)
	if err != nil {
		return Response{}, fmt.Errorf("hits: %w", err)
	}
	s.cache.GetAsync(context.WithoutCancel(ctx), searches.Count{Source: source})

	items, err := collect(ctx, page)
	if err != nil {
		return Response{}, err
	}
	rows, err := s.render(ctx, c, page, items)
	if err != nil {
		return Response{}, err
	}

	sum := summarize(req, full.(searches.HitResults))
	sum.Window = page.WindowStats()
	return Response{Summary: sum, Hits: rows}, nil
}

func (s *Service) count(ctx context.Context, source searches.HitsSearch, req *request.Request) (Response, error) {
	r, err := s.cache.Get(ctx, searches.Count{Source: source})
	if err != nil {
		return Response{}, fmt.Errorf("count: %w", err)
	}
	counts := r.(searches.Counts)
	return Response{Summary: result.Summary{
		Pattern:   req.Pattern(),
		Processed: counts.Hits,
		Retrieved: counts.Hits,
		Docs:      counts.Docs,
		MaxStats:  counts.MaxStats,
		Sample:    req.Sample(),
	}}, nil
}

func (s *Service) group(ctx context.Context, c *searches.Corpus, source searches.HitsSearch, req *request.Request) (Response, error) {
	r, err := s.cache.Get(ctx, searches.Group{
		Source:    source,
		Corpus:    c,
		Property:  req.GroupBy(),
		MaxStored: req.GroupHits(),
	})
	if err != nil {
		return Response{}, fmt.Errorf("group: %w", err)
	}
	grouped := r.(*searches.Groups)

	full, err := s.cache.Get(ctx, source)
	if err != nil {
		return Response{}, fmt.Errorf("hits: %w", err)
	}

	first := min(req.First(), len(grouped.Groups))
	end := min(first+req.Number(), len(grouped.Groups))
	resp := Response{
		Summary:    summarize(req, full.(searches.HitResults)),
		GroupCount: len(grouped.Groups),
		Groups:     make([]result.Group, 0, end-first),
	}
	for _, g := range grouped.Groups[first:end] {
		rows, err := s.render(ctx, c, nil, g.Hits)
		if err != nil {
			return Response{}, err
		}
		resp.Groups = append(resp.Groups, result.Group{Identity: string(g.Identity), Size: g.Size, Hits: rows})
	}
	resp.Summary.Window = &results.WindowStats{
		First:     first,
		Requested: req.Number(),
		Actual:    end - first,
		HasNext:   end < len(grouped.Groups),
	}
	return resp, nil
}

func collect(ctx context.Context, r searches.HitResults) ([]hit.Hit, error) {
	var items []hit.Hit
	it := r.Iterator(ctx)
	for it.Next() {
		items = append(items, it.Item())
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("read hits: %w", err)
	}
	return items, nil
}

// render builds keyword-in-context rows. src supplies captured groups and may be nil.
func (s *Service) render(ctx context.Context, c *searches.Corpus, src searches.HitResults, items []hit.Hit) ([]result.Result, error) {
	if len(items) == 0 {
		return []result.Result{}, nil
	}
	var contexts []results.Context
	if c.Contexts != nil {
		var err error
		if contexts, err = c.Contexts.Contexts(ctx, items, s.contextSize); err != nil {
			return nil, fmt.Errorf("fetch contexts: %w", err)
		}
	}
	var groups *results.CapturedGroups[hit.Hit]
	if src != nil {
		groups = src.CapturedGroups()
	}

	rows := make([]result.Result, len(items))
	for i, h := range items {
		var left, match, right []string
		if contexts != nil {
			left, match, right = contexts[i].Left, contexts[i].Match, contexts[i].Right
		}
		var captured map[string]results.Span
		if groups != nil {
			for _, g := range groups.GetMap(h, true) {
				if captured == nil {
					captured = make(map[string]results.Span)
				}
				captured[g.Name] = *g.Span
			}
		}
		doc, _ := c.Index.Document(h.Doc)
		rows[i] = result.New(h.Doc, doc.Name, h.Start, h.End, left, match, right, captured)
	}
	return rows, nil
}

// summarize snapshots the progress of the full hit sequence without blocking.
func summarize(req *request.Request, full searches.HitResults) result.Summary {
	st := full.Stats()
	return result.Summary{
		Pattern:       req.Pattern(),
		Processed:     st.Processed,
		Retrieved:     st.Retrieved,
		Docs:          st.DocsRetrieved,
		StillCounting: !st.Done,
		MaxStats:      st.MaxStats,
		Sample:        req.Sample(),
	}
}
