package corpus

import (
	"context"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/docusmart/blacklab/internal/domain/hit"
	"github.com/docusmart/blacklab/internal/results"
)

// checkEvery is how many token positions are scanned between cancellation checks.
const checkEvery = 1024

// Find returns a producer of the hits of pattern, in document then position
// order. Patterns with named terms yield a results.GroupProducer.
func (ix *Index) Find(pattern string) (results.Producer[hit.Hit], error) {
	if err := ix.checkOpen(); err != nil {
		return nil, err
	}
	terms, err := parsePattern(pattern)
	if err != nil {
		return nil, err
	}

	m := &matcher{
		ix:    ix,
		terms: terms,
		docs:  ix.candidates(terms).Iterator(),
		doc:   -1,
	}
	for i, t := range terms {
		if t.capture != "" {
			m.names = append(m.names, t.capture)
			m.captureAt = append(m.captureAt, i)
		}
	}
	if len(m.names) > 0 {
		return &groupMatcher{matcher: m}, nil
	}
	return m, nil
}

type matcher struct {
	ix    *Index
	terms []term
	docs  roaring.IntPeekable

	doc    int
	tokens []string
	pos    int

	names     []string
	captureAt []int
	last      hit.Hit
}

func (m *matcher) Next(ctx context.Context) (hit.Hit, bool, error) {
	scanned := 0
	for {
		if m.tokens == nil || m.pos+len(m.terms) > len(m.tokens) {
			if !m.docs.HasNext() {
				return hit.Hit{}, false, nil
			}
			m.doc = int(m.docs.Next())
			m.tokens = m.ix.Tokens(m.doc)
			m.pos = 0
			if err := m.ix.checkOpen(); err != nil {
				return hit.Hit{}, false, err
			}
			continue
		}

		start := m.pos
		m.pos++
		if m.matchAt(start) {
			m.last = hit.Hit{Doc: m.doc, Start: start, End: start + len(m.terms)}
			return m.last, true, nil
		}

		if scanned++; scanned%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return hit.Hit{}, false, err
			}
			if err := m.ix.checkOpen(); err != nil {
				return hit.Hit{}, false, err
			}
		}
	}
}

func (m *matcher) matchAt(start int) bool {
	for i, t := range m.terms {
		if !t.any && m.tokens[start+i] != t.text {
			return false
		}
	}
	return true
}

type groupMatcher struct {
	*matcher
}

func (g *groupMatcher) GroupNames() []string { return g.names }

func (g *groupMatcher) Groups() []results.Span {
	spans := make([]results.Span, len(g.captureAt))
	for i, at := range g.captureAt {
		p := g.last.Start + at
		spans[i] = results.Span{Start: p, End: p + 1}
	}
	return spans
}
