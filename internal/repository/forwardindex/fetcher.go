package forwardindex

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/docusmart/blacklab/internal/domain/hit"
	"github.com/docusmart/blacklab/internal/results"
)

// DefaultBatchSize is the number of documents loaded per source call.
const DefaultBatchSize = 64

// TokenSource returns the token lists of documents of an index.
type TokenSource interface {
	Tokens(ctx context.Context, index string, docs []int) ([][]string, error)
}

// Fetcher builds hit contexts for one index, loading each document once and
// running up to parallelism loads at a time.
type Fetcher struct {
	src         TokenSource
	index       string
	parallelism int
	batchSize   int
}

var _ results.ContextFetcher[hit.Hit] = (*Fetcher)(nil)

// NewFetcher returns a context fetcher over src for index.
func NewFetcher(src TokenSource, index string, parallelism int) *Fetcher {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &Fetcher{src: src, index: index, parallelism: parallelism, batchSize: DefaultBatchSize}
}

// Contexts returns, for every hit, up to size tokens on each side plus the matched tokens.
func (f *Fetcher) Contexts(ctx context.Context, hits []hit.Hit, size int) ([]results.Context, error) {
	var docs []int
	seen := make(map[int]bool)
	for _, h := range hits {
		if !seen[h.Doc] {
			seen[h.Doc] = true
			docs = append(docs, h.Doc)
		}
	}

	var mu sync.Mutex
	tokens := make(map[int][]string, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.parallelism)
	for start := 0; start < len(docs); start += f.batchSize {
		batch := docs[start:min(start+f.batchSize, len(docs))]
		g.Go(func() error {
			lists, err := f.src.Tokens(gctx, f.index, batch)
			if err != nil {
				return err
			}
			mu.Lock()
			for i, doc := range batch {
				tokens[doc] = lists[i]
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]results.Context, len(hits))
	for i, h := range hits {
		out[i] = contextOf(tokens[h.Doc], h, size)
	}
	return out, nil
}

func contextOf(tokens []string, h hit.Hit, size int) results.Context {
	clamp := func(i int) int { return min(max(i, 0), len(tokens)) }
	start, end := clamp(h.Start), clamp(h.End)
	return results.Context{
		Left:  tokens[clamp(start-size):start],
		Match: tokens[start:end],
		Right: tokens[end:clamp(end+size)],
	}
}
