// Package searches defines the cacheable search descriptors of a query
// pipeline. A derived search obtains its source through the cache, so every
// prefix of a pipeline is computed once and shared by the requests that
// start with it.
package searches

import (
	"context"
	"fmt"

	"github.com/docusmart/blacklab/internal/cache"
	"github.com/docusmart/blacklab/internal/corpus"
	"github.com/docusmart/blacklab/internal/domain/hit"
	"github.com/docusmart/blacklab/internal/results"
)

// HitResults is the result of every search producing hits.
type HitResults = results.Results[hit.Hit]

// Corpus bundles an index with the collaborators searches over it need.
type Corpus struct {
	Index    *corpus.Index
	Contexts results.ContextFetcher[hit.Hit]
	FetchMin int
	Max      results.MaxSettings
}

// Name returns the index name.
func (c *Corpus) Name() string { return c.Index.Name() }

// HitsSearch is a search whose result is a hit sequence.
type HitsSearch interface {
	cache.Search
	hitsSearch()
}

// resolve runs s through r and returns its hits.
func resolve(ctx context.Context, r cache.Runner, s HitsSearch) (HitResults, error) {
	res, err := r.Get(ctx, s)
	if err != nil {
		return nil, err
	}
	hits, ok := res.(HitResults)
	if !ok {
		return nil, fmt.Errorf("search %s produced %T, not hits", s.Key(), res)
	}
	return hits, nil
}

// Find is the root search: the hits of a pattern in a corpus.
type Find struct {
	Corpus  *Corpus
	Pattern string
}

func (Find) hitsSearch() {}

// Key names the index by ID, so a corpus registered again under the same
// name never shares entries with the one it replaced.
func (s Find) Key() string {
	return fmt.Sprintf("find(%s, %q, max=%d/%d)", s.Corpus.Index.ID(), s.Pattern, s.Corpus.Max.MaxRetrieve, s.Corpus.Max.MaxCount)
}

// Index returns the corpus name; invalidation covers every generation.
func (s Find) Index() string { return s.Corpus.Name() }

// Execute starts the lazy sequence; hits are produced as readers ask for them.
func (s Find) Execute(_ context.Context, _ cache.Runner) (cache.Result, error) {
	p, err := s.Corpus.Index.Find(s.Pattern)
	if err != nil {
		return nil, err
	}
	return results.FromProducer(p,
		results.WithFetchMin(s.Corpus.FetchMin),
		results.WithMaxSettings(s.Corpus.Max),
	), nil
}

// Filter keeps the source hits whose property equals Value.
type Filter struct {
	Source   HitsSearch
	Corpus   *Corpus
	Property hit.Property
	Value    results.PropertyValue
}

func (Filter) hitsSearch() {}

func (s Filter) Key() string {
	return fmt.Sprintf("filter(%s, %s=%q)", s.Source.Key(), s.Property.Name(), s.Value)
}

func (s Filter) Index() string { return s.Source.Index() }

func (s Filter) Execute(ctx context.Context, r cache.Runner) (cache.Result, error) {
	src, err := resolve(ctx, r, s.Source)
	if err != nil {
		return nil, err
	}
	return results.NewFiltered(ctx, src, s.Property, s.Value, s.Corpus.Contexts,
		results.WithFetchMin(s.Corpus.FetchMin))
}

// Window is hits [First, First+Size) of the source.
type Window struct {
	Source HitsSearch
	First  int
	Size   int
}

func (Window) hitsSearch() {}

func (s Window) Key() string {
	return fmt.Sprintf("window(%s, %d, %d)", s.Source.Key(), s.First, s.Size)
}

func (s Window) Index() string { return s.Source.Index() }

func (s Window) Execute(ctx context.Context, r cache.Runner) (cache.Result, error) {
	src, err := resolve(ctx, r, s.Source)
	if err != nil {
		return nil, err
	}
	return results.Window(ctx, src, s.First, s.Size)
}

// Sample is a reproducible random subset of the source.
type Sample struct {
	Source HitsSearch
	Params results.SampleParameters
}

func (Sample) hitsSearch() {}

func (s Sample) Key() string {
	return fmt.Sprintf("sample(%s, %s)", s.Source.Key(), s.Params)
}

func (s Sample) Index() string { return s.Source.Index() }

func (s Sample) Execute(ctx context.Context, r cache.Runner) (cache.Result, error) {
	src, err := resolve(ctx, r, s.Source)
	if err != nil {
		return nil, err
	}
	return results.Sample(ctx, src, s.Params)
}

// Compile-time checks.
var (
	_ HitsSearch = Find{}
	_ HitsSearch = Filter{}
	_ HitsSearch = Window{}
	_ HitsSearch = Sample{}
	_ cache.Search = Count{}
	_ cache.Search = Group{}
)
