package results

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/docusmart/blacklab/internal/domain"
)

// Window returns items [first, first+size) of src as a new, fully realized
// sequence. Reading stops one item past the window to compute HasNext.
// Asking for a window that starts beyond the last item is an invalid query,
// except for the first window of an empty result.
func Window[T Item](ctx context.Context, src Results[T], first, size int) (*Sequence[T], error) {
	if first < 0 || size < 0 {
		return nil, fmt.Errorf("window [%d,+%d): %w", first, size, domain.ErrInvalidQuery)
	}
	if err := src.EnsureRead(ctx, first+size+1); err != nil {
		return nil, err
	}
	have := src.SizeSoFar()
	if first > 0 && first >= have {
		return nil, fmt.Errorf("window start %d beyond %d results: %w", first, have, domain.ErrInvalidQuery)
	}

	end := min(first+size, have)
	items := make([]T, 0, max(end-first, 0))
	for i := first; i < end; i++ {
		item, ok, err := src.Get(ctx, i)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		items = append(items, item)
	}

	stats := WindowStats{
		First:     first,
		Requested: size,
		Actual:    len(items),
		HasNext:   have > end,
	}
	opts := []Option{WithWindowStats(stats)}
	groups := src.CapturedGroups()
	if groups != nil {
		opts = append(opts, WithGroupNames(groups.Names()))
	}
	w := FromSlice(items, opts...)
	copyGroups(w, groups, items)
	return w, nil
}

// Sample draws a reproducible random subset of src, kept in source order.
// The whole source is read first.
func Sample[T Item](ctx context.Context, src Results[T], params SampleParameters) (*Sequence[T], error) {
	if params.Percentage < 0 || params.Percentage > 1 || params.Number < 0 {
		return nil, fmt.Errorf("sample %s: %w", params, domain.ErrInvalidQuery)
	}
	all, err := drain(ctx, src)
	if err != nil {
		return nil, err
	}

	n := params.NumberOfItems(len(all))
	rng := rand.New(rand.NewPCG(params.Seed, params.Seed^0x9e3779b97f4a7c15))
	picked := rng.Perm(len(all))[:n]
	slices.Sort(picked)

	items := make([]T, len(picked))
	for i, idx := range picked {
		items[i] = all[idx]
	}

	opts := []Option{WithSampleParameters(params)}
	groups := src.CapturedGroups()
	if groups != nil {
		opts = append(opts, WithGroupNames(groups.Names()))
	}
	s := FromSlice(items, opts...)
	copyGroups(s, groups, items)
	return s, nil
}

func copyGroups[T Item](dst *Sequence[T], src *CapturedGroups[T], items []T) {
	if src == nil || dst.groups == nil {
		return
	}
	for _, item := range items {
		if spans, ok := src.Raw(item); ok {
			dst.groups.Put(item, spans)
		}
	}
}
