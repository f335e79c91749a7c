package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docusmart/blacklab/internal/cache"
	"github.com/docusmart/blacklab/internal/corpus"
	"github.com/docusmart/blacklab/internal/domain"
	"github.com/docusmart/blacklab/internal/domain/hit"
	"github.com/docusmart/blacklab/internal/domain/search/filter"
	"github.com/docusmart/blacklab/internal/domain/search/mode"
	"github.com/docusmart/blacklab/internal/domain/search/request"
	"github.com/docusmart/blacklab/internal/repository/forwardindex"
	"github.com/docusmart/blacklab/internal/results"
	"github.com/docusmart/blacklab/internal/searches"
)

// --- Fakes ---

type fakeCorpora map[string]*searches.Corpus

func (f fakeCorpora) Get(name string) (*searches.Corpus, error) {
	c, ok := f[name]
	if !ok {
		return nil, fmt.Errorf("corpus %q: %w", name, domain.ErrNotFound)
	}
	return c, nil
}

func newService(t *testing.T) (*Service, *cache.Cache) {
	t.Helper()
	ix := corpus.New("news")
	ix.Add("a", "the quick brown fox jumps over the lazy dog")
	ix.Add("b", "a brown dog and a brown cat")
	ix.Add("c", "the fox and the dog")

	c := cache.New(cache.Config{Workers: 4}, nil, nil)
	t.Cleanup(c.Close)

	corpora := fakeCorpora{"news": {
		Index:    ix,
		Contexts: forwardindex.NewFetcher(forwardindex.NewMemory(ix), ix.ID(), 2),
	}}
	return New(corpora, c, 0), c
}

func newRequest(t *testing.T, pattern string, m mode.Mode, first, number int, groupBy hit.Property, filters ...string) request.Request {
	t.Helper()
	var conds []filter.Condition
	for _, f := range filters {
		c, err := filter.Parse(f)
		require.NoError(t, err)
		conds = append(conds, c)
	}
	expr, err := filter.NewExpression(conds...)
	require.NoError(t, err)
	req, err := request.New(pattern, m, expr, first, number, nil, groupBy, 0)
	require.NoError(t, err)
	return req
}

// --- Tests ---

func TestSearch_HitsPage(t *testing.T) {
	svc, _ := newService(t)
	req := newRequest(t, "the", mode.Hits, 1, 2, nil)

	resp, err := svc.Search(context.Background(), "news", &req)
	require.NoError(t, err)
	require.Len(t, resp.Hits, 2)

	first := resp.Hits[0]
	assert.Equal(t, 0, first.Doc())
	assert.Equal(t, "a", first.DocName())
	assert.Equal(t, 6, first.Start())
	assert.Equal(t, []string{"quick", "brown", "fox", "jumps", "over"}, first.Left())
	assert.Equal(t, []string{"the"}, first.Match())
	assert.Equal(t, []string{"lazy", "dog"}, first.Right())

	assert.Equal(t, 2, resp.Hits[1].Doc())
	assert.Equal(t, "c", resp.Hits[1].DocName())

	require.NotNil(t, resp.Summary.Window)
	assert.Equal(t, 1, resp.Summary.Window.First)
	assert.Equal(t, 2, resp.Summary.Window.Actual)
	assert.True(t, resp.Summary.Window.HasNext)
	assert.Equal(t, 4, resp.Summary.Processed)
	assert.Equal(t, 2, resp.Summary.Docs)
	assert.False(t, resp.Summary.StillCounting)
}

func TestSearch_SharesCachedPrefix(t *testing.T) {
	svc, c := newService(t)
	ctx := context.Background()

	page1 := newRequest(t, "the", mode.Hits, 0, 2, nil)
	_, err := svc.Search(ctx, "news", &page1)
	require.NoError(t, err)
	before := c.Status()

	page2 := newRequest(t, "the", mode.Hits, 2, 2, nil)
	resp, err := svc.Search(ctx, "news", &page2)
	require.NoError(t, err)
	assert.Len(t, resp.Hits, 2)
	assert.False(t, resp.Summary.Window.HasNext)

	after := c.Status()
	// Only the second window is new; find and count are shared.
	assert.Equal(t, before.Misses+1, after.Misses)
}

func TestSearch_CapturedGroups(t *testing.T) {
	svc, _ := newService(t)
	req := newRequest(t, "adj:brown _", mode.Hits, 0, 10, nil)

	resp, err := svc.Search(context.Background(), "news", &req)
	require.NoError(t, err)
	require.Len(t, resp.Hits, 3)
	assert.Equal(t, map[string]results.Span{"adj": {Start: 2, End: 3}}, resp.Hits[0].Groups())
	assert.Equal(t, []string{"brown", "fox"}, resp.Hits[0].Match())
}

func TestSearch_CountWithFilter(t *testing.T) {
	svc, _ := newService(t)
	req := newRequest(t, "brown", mode.Count, 0, 0, nil, "right=dog")

	resp, err := svc.Search(context.Background(), "news", &req)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Summary.Processed)
	assert.Equal(t, 1, resp.Summary.Docs)
	assert.Nil(t, resp.Hits)
}

func TestSearch_Group(t *testing.T) {
	svc, _ := newService(t)
	req := newRequest(t, "the", mode.Group, 1, 2, hit.Right{N: 1})

	resp, err := svc.Search(context.Background(), "news", &req)
	require.NoError(t, err)
	assert.Equal(t, 4, resp.GroupCount)
	require.Len(t, resp.Groups, 2)
	assert.Equal(t, "fox", resp.Groups[0].Identity)
	assert.Equal(t, "lazy", resp.Groups[1].Identity)
	require.Len(t, resp.Groups[1].Hits, 1)
	assert.Equal(t, []string{"the"}, resp.Groups[1].Hits[0].Match())
	assert.True(t, resp.Summary.Window.HasNext)
}

func TestSearch_GroupPastEnd(t *testing.T) {
	svc, _ := newService(t)
	req := newRequest(t, "the", mode.Group, 10, 2, hit.Doc{})

	resp, err := svc.Search(context.Background(), "news", &req)
	require.NoError(t, err)
	assert.Empty(t, resp.Groups)
	assert.Equal(t, 2, resp.GroupCount)
	assert.False(t, resp.Summary.Window.HasNext)
}

func TestSearch_Sample(t *testing.T) {
	svc, _ := newService(t)
	expr, _ := filter.NewExpression()
	req, err := request.New("_", mode.Count, expr, 0, 0, &results.SampleParameters{Number: 5, Seed: 1}, nil, 0)
	require.NoError(t, err)

	resp, err := svc.Search(context.Background(), "news", &req)
	require.NoError(t, err)
	assert.Equal(t, 5, resp.Summary.Processed)
	require.NotNil(t, resp.Summary.Sample)
}

func TestSearch_UnknownCorpus(t *testing.T) {
	svc, _ := newService(t)
	req := newRequest(t, "the", mode.Hits, 0, 10, nil)

	_, err := svc.Search(context.Background(), "missing", &req)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSearch_WindowPastEnd(t *testing.T) {
	svc, _ := newService(t)
	req := newRequest(t, "the", mode.Hits, 100, 10, nil)

	_, err := svc.Search(context.Background(), "news", &req)
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}
