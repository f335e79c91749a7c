package searches

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"unsafe"

	"github.com/docusmart/blacklab/internal/cache"
	"github.com/docusmart/blacklab/internal/domain/hit"
	"github.com/docusmart/blacklab/internal/results"
)

// HitGroup is the set of hits sharing one property value. Only the first
// stored hits are kept; Size counts all of them.
type HitGroup struct {
	Identity results.PropertyValue
	Size     int
	Hits     []hit.Hit
}

// Groups is the result of a Group search, largest group first.
type Groups struct {
	Property string
	Groups   []HitGroup
	Total    int
}

func (g *Groups) SizeEstimate() int64 {
	var size int64
	for _, grp := range g.Groups {
		size += int64(len(grp.Identity)) + int64(len(grp.Hits))*int64(unsafe.Sizeof(hit.Hit{})) + 32
	}
	return size
}

// Group groups the source hits by a property.
type Group struct {
	Source    HitsSearch
	Corpus    *Corpus
	Property  hit.Property
	MaxStored int
}

func (s Group) Key() string {
	return fmt.Sprintf("group(%s, %s, stored=%d)", s.Source.Key(), s.Property.Name(), s.MaxStored)
}

func (s Group) Index() string { return s.Source.Index() }

func (s Group) Execute(ctx context.Context, r cache.Runner) (cache.Result, error) {
	src, err := resolve(ctx, r, s.Source)
	if err != nil {
		return nil, err
	}
	if err := src.EnsureRead(ctx, -1); err != nil {
		return nil, err
	}

	hits := make([]hit.Hit, 0, src.SizeSoFar())
	it := src.Iterator(ctx)
	for it.Next() {
		hits = append(hits, it.Item())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}

	var contexts []results.Context
	if size := s.Property.ContextSize(); size > 0 {
		if s.Corpus.Contexts == nil {
			return nil, fmt.Errorf("group by %s: no context source", s.Property.Name())
		}
		if contexts, err = s.Corpus.Contexts.Contexts(ctx, hits, size); err != nil {
			return nil, fmt.Errorf("fetch contexts: %w", err)
		}
	}

	byValue := make(map[results.PropertyValue]*HitGroup)
	for i, h := range hits {
		var c *results.Context
		if contexts != nil {
			c = &contexts[i]
		}
		v := s.Property.Value(h, c)
		g, ok := byValue[v]
		if !ok {
			g = &HitGroup{Identity: v}
			byValue[v] = g
		}
		g.Size++
		if s.MaxStored < 0 || len(g.Hits) < s.MaxStored {
			g.Hits = append(g.Hits, h)
		}
	}

	out := &Groups{Property: s.Property.Name(), Total: len(hits)}
	for _, g := range byValue {
		out.Groups = append(out.Groups, *g)
	}
	slices.SortFunc(out.Groups, func(a, b HitGroup) int {
		if c := cmp.Compare(b.Size, a.Size); c != 0 {
			return c
		}
		return cmp.Compare(a.Identity, b.Identity)
	})
	return out, nil
}
