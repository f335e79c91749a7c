package search

import (
	"context"

	"github.com/docusmart/blacklab/internal/cache"
	"github.com/docusmart/blacklab/internal/searches"
)

// Corpora resolves corpus names.
type Corpora interface {
	Get(name string) (*searches.Corpus, error)
}

// Cache runs searches, sharing results between identical requests.
type Cache interface {
	Get(ctx context.Context, s cache.Search) (cache.Result, error)
	GetAsync(ctx context.Context, s cache.Search) *cache.Entry
}
