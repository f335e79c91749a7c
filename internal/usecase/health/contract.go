package health

import (
	"context"

	"github.com/docusmart/blacklab/internal/cache"
	"github.com/docusmart/blacklab/internal/usecase/corpus"
)

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// CacheStatus reports the state of the search cache.
type CacheStatus interface {
	Status() cache.Status
}

// CorpusLister lists the searchable corpora.
type CorpusLister interface {
	List() []corpus.Info
}
