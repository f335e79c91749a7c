package searches

import (
	"context"
	"fmt"

	"github.com/docusmart/blacklab/internal/cache"
	"github.com/docusmart/blacklab/internal/results"
)

// Counts is the result of a Count search.
type Counts struct {
	Hits     int
	Docs     int
	MaxStats results.MaxStats
}

func (Counts) SizeEstimate() int64 { return 64 }

// Count reads the whole source and reports how many hits and documents it has.
type Count struct {
	Source HitsSearch
}

func (s Count) Key() string   { return fmt.Sprintf("count(%s)", s.Source.Key()) }
func (s Count) Index() string { return s.Source.Index() }

func (s Count) Execute(ctx context.Context, r cache.Runner) (cache.Result, error) {
	src, err := resolve(ctx, r, s.Source)
	if err != nil {
		return nil, err
	}
	if _, err := src.ProcessedTotal(ctx); err != nil {
		return nil, err
	}
	st := src.Stats()
	return Counts{Hits: st.Counted, Docs: st.DocsCounted, MaxStats: st.MaxStats}, nil
}
