package blacklab

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/docusmart/blacklab/internal/domain/hit"
	"github.com/docusmart/blacklab/internal/domain/search/filter"
	"github.com/docusmart/blacklab/internal/domain/search/mode"
	"github.com/docusmart/blacklab/internal/domain/search/request"
	"github.com/docusmart/blacklab/internal/domain/search/result"
	"github.com/docusmart/blacklab/internal/results"
	searchuc "github.com/docusmart/blacklab/internal/usecase/search"
)

// searchUseCase is the internal interface for running searches.
type searchUseCase interface {
	Search(ctx context.Context, corpus string, req *request.Request) (searchuc.Response, error)
}

type where struct {
	property string
	value    string
}

// Query is a fluent builder for one search over a corpus.
type Query struct {
	corpus string
	svc    searchUseCase
	obs    *observer

	pattern   string
	filters   []where
	first     int
	number    int
	sample    *results.SampleParameters
	groupBy   string
	groupHits int
}

// Pattern sets the phrase pattern, e.g. "the adj:_ fox".
func (q *Query) Pattern(p string) *Query {
	q.pattern = p
	return q
}

// Where keeps hits whose property equals value. Conditions apply in order.
func (q *Query) Where(property, value string) *Query {
	q.filters = append(q.filters, where{property: property, value: value})
	return q
}

// Page selects the window of hits (or groups) to return.
func (q *Query) Page(first, number int) *Query {
	q.first = first
	q.number = number
	return q
}

// SamplePercent keeps a reproducible random share (0..100] of the hits.
func (q *Query) SamplePercent(percent float64, seed uint64) *Query {
	q.sample = &results.SampleParameters{Percentage: percent / 100, Seed: seed}
	return q
}

// SampleN keeps n reproducibly chosen hits.
func (q *Query) SampleN(n int, seed uint64) *Query {
	q.sample = &results.SampleParameters{Number: n, Seed: seed}
	return q
}

// GroupBy sets the grouping property used by Groups.
func (q *Query) GroupBy(property string) *Query {
	q.groupBy = property
	return q
}

// GroupHits sets how many hits are returned per group.
func (q *Query) GroupHits(n int) *Query {
	q.groupHits = n
	return q
}

// Hits returns a page of hits.
func (q *Query) Hits(ctx context.Context) (page HitsPage, err error) {
	c := q.obs.begin("search.hits", q.corpus, q.logFields()...)
	defer func() {
		c.done(err, zap.Int("hits", len(page.Hits)), zap.Int("processed", page.Summary.Processed))
	}()

	resp, err := q.run(ctx, mode.Hits)
	if err != nil {
		return HitsPage{}, err
	}
	page = HitsPage{Summary: fromSummary(resp.Summary), Hits: fromResults(resp.Hits)}
	if w := resp.Summary.Window; w != nil {
		page.First = w.First
		page.HasNext = w.HasNext
	}
	return page, nil
}

// Count counts all hits and the documents they occur in.
func (q *Query) Count(ctx context.Context) (sum Summary, err error) {
	c := q.obs.begin("search.count", q.corpus, q.logFields()...)
	defer func() { c.done(err, zap.Int("processed", sum.Processed), zap.Int("docs", sum.Docs)) }()

	resp, err := q.run(ctx, mode.Count)
	if err != nil {
		return Summary{}, err
	}
	return fromSummary(resp.Summary), nil
}

// Groups groups all hits by the GroupBy property.
func (q *Query) Groups(ctx context.Context) (page GroupsPage, err error) {
	c := q.obs.begin("search.groups", q.corpus, q.logFields()...)
	defer func() { c.done(err, zap.Int("groups", page.Total), zap.Int("processed", page.Summary.Processed)) }()

	resp, err := q.run(ctx, mode.Group)
	if err != nil {
		return GroupsPage{}, err
	}
	page = GroupsPage{
		Summary: fromSummary(resp.Summary),
		Total:   resp.GroupCount,
		Groups:  make([]Group, len(resp.Groups)),
	}
	for i, g := range resp.Groups {
		page.Groups[i] = Group{Identity: g.Identity, Size: g.Size, Hits: fromResults(g.Hits)}
	}
	if w := resp.Summary.Window; w != nil {
		page.HasNext = w.HasNext
	}
	return page, nil
}

// logFields describe the query in call logs.
func (q *Query) logFields() []zap.Field {
	fields := []zap.Field{
		zap.String("pattern", q.pattern),
		zap.Int("first", q.first),
		zap.Int("number", q.number),
	}
	if len(q.filters) > 0 {
		fields = append(fields, zap.Int("filters", len(q.filters)))
	}
	if q.sample != nil {
		fields = append(fields, zap.Stringer("sample", *q.sample))
	}
	if q.groupBy != "" {
		fields = append(fields, zap.String("group_by", q.groupBy))
	}
	return fields
}

func (q *Query) run(ctx context.Context, m mode.Mode) (searchuc.Response, error) {
	req, err := q.build(m)
	if err != nil {
		return searchuc.Response{}, fmt.Errorf("search %s: %w", q.corpus, err)
	}
	resp, err := q.svc.Search(ctx, q.corpus, &req)
	if err != nil {
		return searchuc.Response{}, fmt.Errorf("search %s: %w", q.corpus, err)
	}
	return resp, nil
}

func (q *Query) build(m mode.Mode) (request.Request, error) {
	conds := make([]filter.Condition, 0, len(q.filters))
	for _, w := range q.filters {
		prop, err := hit.ParseProperty(w.property)
		if err != nil {
			return request.Request{}, err
		}
		c, err := filter.NewMatch(prop, w.value)
		if err != nil {
			return request.Request{}, err
		}
		conds = append(conds, c)
	}
	expr, err := filter.NewExpression(conds...)
	if err != nil {
		return request.Request{}, err
	}

	var groupBy hit.Property
	if m == mode.Group && q.groupBy != "" {
		if groupBy, err = hit.ParseProperty(q.groupBy); err != nil {
			return request.Request{}, err
		}
	}
	return request.New(q.pattern, m, expr, q.first, q.number, q.sample, groupBy, q.groupHits)
}

func fromSummary(s result.Summary) Summary {
	return Summary{
		Processed:     s.Processed,
		Retrieved:     s.Retrieved,
		Docs:          s.Docs,
		StillCounting: s.StillCounting,
		LimitReached:  s.MaxStats.RetrieveExceeded,
	}
}

func fromResults(rs []result.Result) []Hit {
	out := make([]Hit, len(rs))
	for i := range rs {
		r := &rs[i]
		h := Hit{
			Doc:     r.Doc(),
			DocName: r.DocName(),
			Start:   r.Start(),
			End:     r.End(),
			Left:    r.Left(),
			Match:   r.Match(),
			Right:   r.Right(),
		}
		if g := r.Groups(); g != nil {
			h.Groups = make(map[string]Span, len(g))
			for name, sp := range g {
				h.Groups[name] = Span{Start: sp.Start, End: sp.End}
			}
		}
		out[i] = h
	}
	return out
}
