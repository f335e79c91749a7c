package searches

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docusmart/blacklab/internal/cache"
	"github.com/docusmart/blacklab/internal/corpus"
	"github.com/docusmart/blacklab/internal/domain"
	"github.com/docusmart/blacklab/internal/domain/hit"
	"github.com/docusmart/blacklab/internal/repository/forwardindex"
	"github.com/docusmart/blacklab/internal/results"
)

func testCorpus(t *testing.T) *Corpus {
	t.Helper()
	ix := corpus.New("news")
	ix.Add("a", "the quick brown fox jumps over the lazy dog")
	ix.Add("b", "a brown dog and a brown cat")
	ix.Add("c", "the fox and the dog")
	return &Corpus{
		Index:    ix,
		Contexts: forwardindex.NewFetcher(forwardindex.NewMemory(ix), ix.ID(), 2),
	}
}

func testCache(t *testing.T) *cache.Cache {
	t.Helper()
	c := cache.New(cache.Config{Workers: 4}, nil, nil)
	t.Cleanup(c.Close)
	return c
}

func hitsOf(t *testing.T, r cache.Result) []hit.Hit {
	t.Helper()
	seq, ok := r.(HitResults)
	require.True(t, ok, "result %T is not a hit sequence", r)
	var out []hit.Hit
	it := seq.Iterator(context.Background())
	for it.Next() {
		out = append(out, it.Item())
	}
	require.NoError(t, it.Err())
	return out
}

func TestFind(t *testing.T) {
	c := testCache(t)
	co := testCorpus(t)

	r, err := c.Get(context.Background(), Find{Corpus: co, Pattern: "the"})
	require.NoError(t, err)
	assert.Equal(t, []hit.Hit{
		{Doc: 0, Start: 0, End: 1},
		{Doc: 0, Start: 6, End: 7},
		{Doc: 2, Start: 0, End: 1},
		{Doc: 2, Start: 3, End: 4},
	}, hitsOf(t, r))
}

func TestFind_InvalidPattern(t *testing.T) {
	c := testCache(t)
	_, err := c.Get(context.Background(), Find{Corpus: testCorpus(t), Pattern: ""})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}

func TestKeys(t *testing.T) {
	co := testCorpus(t)
	find := Find{Corpus: co, Pattern: "brown"}
	id := co.Index.ID()

	assert.Equal(t, `find(`+id+`, "brown", max=0/0)`, find.Key())
	assert.Equal(t, `filter(find(`+id+`, "brown", max=0/0), right="dog")`,
		Filter{Source: find, Corpus: co, Property: hit.Right{N: 1}, Value: "dog"}.Key())
	assert.Equal(t, `window(find(`+id+`, "brown", max=0/0), 10, 5)`,
		Window{Source: find, First: 10, Size: 5}.Key())
	assert.Equal(t, "news", Count{Source: Window{Source: find}}.Index())

	// Equal descriptors are substitutable.
	assert.Equal(t, find.Key(), Find{Corpus: co, Pattern: "brown"}.Key())
	assert.NotEqual(t, find.Key(), Find{Corpus: co, Pattern: "fox"}.Key())
}

func TestKeys_ReplacedCorpusDoesNotShare(t *testing.T) {
	old, replacement := testCorpus(t), testCorpus(t)
	require.Equal(t, old.Name(), replacement.Name())

	a := Count{Source: Find{Corpus: old, Pattern: "brown"}}
	b := Count{Source: Find{Corpus: replacement, Pattern: "brown"}}
	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, a.Index(), b.Index())
}

func TestFilter_ByContext(t *testing.T) {
	c := testCache(t)
	co := testCorpus(t)

	s := Filter{
		Source:   Find{Corpus: co, Pattern: "brown"},
		Corpus:   co,
		Property: hit.Right{N: 1},
		Value:    "dog",
	}
	r, err := c.Get(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []hit.Hit{{Doc: 1, Start: 1, End: 2}}, hitsOf(t, r))
}

func TestWindow_SharesSource(t *testing.T) {
	c := testCache(t)
	co := testCorpus(t)
	find := Find{Corpus: co, Pattern: "the"}

	r, err := c.Get(context.Background(), Window{Source: find, First: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, []hit.Hit{{Doc: 0, Start: 6, End: 7}, {Doc: 2, Start: 0, End: 1}}, hitsOf(t, r))

	w := r.(HitResults).WindowStats()
	require.NotNil(t, w)
	assert.Equal(t, 1, w.First)
	assert.Equal(t, 2, w.Actual)
	assert.True(t, w.HasNext)
	assert.True(t, w.HasPrevious())

	counts, err := c.Get(context.Background(), Count{Source: find})
	require.NoError(t, err)
	assert.Equal(t, Counts{Hits: 4, Docs: 2}, counts)

	// find, window and count; the find entry is shared.
	assert.Equal(t, 3, c.Status().Entries)
}

func TestWindow_PastEnd(t *testing.T) {
	c := testCache(t)
	_, err := c.Get(context.Background(), Window{Source: Find{Corpus: testCorpus(t), Pattern: "the"}, First: 10, Size: 2})
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}

func TestSample_Reproducible(t *testing.T) {
	c := testCache(t)
	co := testCorpus(t)
	find := Find{Corpus: co, Pattern: "_"}
	params := results.SampleParameters{Number: 5, Seed: 42}

	r1, err := c.Get(context.Background(), Sample{Source: find, Params: params})
	require.NoError(t, err)
	first := hitsOf(t, r1)
	require.Len(t, first, 5)

	c.Clear(false)
	r2, err := c.Get(context.Background(), Sample{Source: find, Params: params})
	require.NoError(t, err)
	assert.Equal(t, first, hitsOf(t, r2))
}

func TestGroup_ByRightContext(t *testing.T) {
	c := testCache(t)
	co := testCorpus(t)

	r, err := c.Get(context.Background(), Group{
		Source:    Find{Corpus: co, Pattern: "the"},
		Corpus:    co,
		Property:  hit.Right{N: 1},
		MaxStored: -1,
	})
	require.NoError(t, err)
	groups := r.(*Groups)
	assert.Equal(t, 4, groups.Total)
	assert.Equal(t, "right", groups.Property)

	var ids []results.PropertyValue
	for _, g := range groups.Groups {
		ids = append(ids, g.Identity)
		assert.Equal(t, 1, g.Size)
	}
	assert.Equal(t, []results.PropertyValue{"dog", "fox", "lazy", "quick"}, ids)
	assert.Positive(t, groups.SizeEstimate())
}

func TestGroup_ByDocLimitsStoredHits(t *testing.T) {
	c := testCache(t)
	co := testCorpus(t)

	r, err := c.Get(context.Background(), Group{
		Source:    Find{Corpus: co, Pattern: "brown"},
		Corpus:    co,
		Property:  hit.Doc{},
		MaxStored: 1,
	})
	require.NoError(t, err)
	groups := r.(*Groups).Groups
	require.Len(t, groups, 2)

	assert.Equal(t, results.PropertyValue("1"), groups[0].Identity)
	assert.Equal(t, 2, groups[0].Size)
	assert.Equal(t, []hit.Hit{{Doc: 1, Start: 1, End: 2}}, groups[0].Hits)

	assert.Equal(t, results.PropertyValue("0"), groups[1].Identity)
	assert.Equal(t, 1, groups[1].Size)
}

func TestGroup_NeedsContexts(t *testing.T) {
	c := testCache(t)
	co := testCorpus(t)
	co.Contexts = nil

	_, err := c.Get(context.Background(), Group{
		Source:   Find{Corpus: co, Pattern: "the"},
		Corpus:   co,
		Property: hit.Text{},
	})
	require.Error(t, err)
}

func TestFind_ClosedIndex(t *testing.T) {
	c := testCache(t)
	co := testCorpus(t)
	co.Index.Close()

	_, err := c.Get(context.Background(), Count{Source: Find{Corpus: co, Pattern: "the"}})
	assert.ErrorIs(t, err, domain.ErrIndexClosed)

	// Failures over a closed index are not cached.
	assert.Eventually(t, func() bool { return c.Status().Entries == 0 },
		time.Second, 5*time.Millisecond)
}
