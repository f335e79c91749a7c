package results

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

type testHit struct {
	doc, start, end int
}

func (h testHit) DocID() int { return h.doc }

func hitsIn(docs ...int) []testHit {
	out := make([]testHit, 0, len(docs))
	for i, d := range docs {
		out = append(out, testHit{doc: d, start: i, end: i + 1})
	}
	return out
}

func seqHits(n int) []testHit {
	out := make([]testHit, n)
	for i := range out {
		out[i] = testHit{doc: i / 3, start: i, end: i + 1}
	}
	return out
}

// sliceProducer yields items in order. A position listed in stops blocks
// Next until the matching channel is closed or ctx ends.
type sliceProducer struct {
	items []testHit
	pos   int
	calls atomic.Int64

	mu      sync.Mutex
	stops   map[int]chan struct{}
	reached map[int]chan struct{}
	failAt  int
	failErr error
}

func newSliceProducer(items []testHit) *sliceProducer {
	return &sliceProducer{
		items:   items,
		stops:   map[int]chan struct{}{},
		reached: map[int]chan struct{}{},
		failAt:  -1,
	}
}

// stopAt makes Next block before yielding position i. It returns a channel
// that is closed when the producer gets there.
func (p *sliceProducer) stopAt(i int) <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops[i] = make(chan struct{})
	p.reached[i] = make(chan struct{})
	return p.reached[i]
}

func (p *sliceProducer) resume(i int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	close(p.stops[i])
}

func (p *sliceProducer) Next(ctx context.Context) (testHit, bool, error) {
	p.calls.Add(1)
	p.mu.Lock()
	stop, reached := p.stops[p.pos], p.reached[p.pos]
	p.mu.Unlock()
	if stop != nil {
		select {
		case <-reached:
		default:
			close(reached)
		}
		select {
		case <-stop:
		case <-ctx.Done():
			return testHit{}, false, ctx.Err()
		}
	}
	if p.pos == p.failAt {
		return testHit{}, false, p.failErr
	}
	if p.pos >= len(p.items) {
		return testHit{}, false, nil
	}
	item := p.items[p.pos]
	p.pos++
	return item, true, nil
}

// groupProducer attaches fixed spans to every item.
type groupProducer struct {
	*sliceProducer
	names []string
	spans map[testHit][]Span
	last  testHit
}

func (p *groupProducer) Next(ctx context.Context) (testHit, bool, error) {
	item, ok, err := p.sliceProducer.Next(ctx)
	p.last = item
	return item, ok, err
}

func (p *groupProducer) GroupNames() []string { return p.names }

func (p *groupProducer) Groups() []Span {
	if spans, ok := p.spans[p.last]; ok {
		return spans
	}
	return make([]Span, len(p.names))
}

// parity keeps items by start position parity.
type parity struct{}

func (parity) Name() string     { return "parity" }
func (parity) ContextSize() int { return 0 }
func (parity) Value(h testHit, _ *Context) PropertyValue {
	if h.start%2 == 0 {
		return "even"
	}
	return "odd"
}

// firstWord keeps items by the first token of their match context.
type firstWord struct{}

func (firstWord) Name() string     { return "hit" }
func (firstWord) ContextSize() int { return 1 }
func (firstWord) Value(_ testHit, c *Context) PropertyValue {
	if c == nil || len(c.Match) == 0 {
		return ""
	}
	return PropertyValue(c.Match[0])
}

type mapFetcher struct {
	words map[testHit]string
	calls int
	err   error
}

func (f *mapFetcher) Contexts(_ context.Context, items []testHit, _ int) ([]Context, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]Context, len(items))
	for i, h := range items {
		out[i] = Context{Match: []string{f.words[h]}}
	}
	return out, nil
}

var errEngine = errors.New("engine exploded")

var (
	_ Results[testHit] = (*Sequence[testHit])(nil)
	_ Results[testHit] = (*Filtered[testHit])(nil)
)
