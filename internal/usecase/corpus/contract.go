package corpus

import (
	"context"

	idx "github.com/docusmart/blacklab/internal/corpus"
)

// ForwardIndex stores the token lists used to build hit contexts, keyed by index ID.
type ForwardIndex interface {
	Put(ctx context.Context, ix *idx.Index) error
	Drop(ctx context.Context, index string) error
	Tokens(ctx context.Context, index string, docs []int) ([][]string, error)
}

// SearchInvalidator drops cached searches of an index.
type SearchInvalidator interface {
	RemoveSearchesForIndex(index string) int
}
