// Package results implements lazily materialized result sequences.
//
// A Sequence pulls items from an engine-supplied Producer only as far as
// readers ask for them. Derived views (Filtered, windows, samples) share the
// same Results capability interface and are composed over a source rather
// than subclassing it. Realized items are stored in an append-only log with
// an atomically published length, so readers never take a lock; only the
// production path is serialized.
package results

import (
	"context"
	"fmt"
)

// DefaultFetchMin is the minimum number of extra items pulled whenever a read
// has to advance production. It amortizes lock hand-offs between readers.
const DefaultFetchMin = 20

// Item is a single result produced by the matching engine.
// The core only needs to know which document an item belongs to.
type Item interface {
	comparable
	DocID() int
}

// Producer yields items in document order. ok=false signals exhaustion.
type Producer[T Item] interface {
	Next(ctx context.Context) (item T, ok bool, err error)
}

// GroupProducer is a Producer whose items carry named captured sub-spans.
// Groups returns the spans for the item most recently returned by Next,
// one per name in GroupNames.
type GroupProducer[T Item] interface {
	Producer[T]
	GroupNames() []string
	Groups() []Span
}

// Span is a half-open token range [Start, End).
type Span struct {
	Start int
	End   int
}

// Len returns the number of tokens covered by the span.
func (s Span) Len() int { return s.End - s.Start }

func (s Span) String() string { return fmt.Sprintf("(%d,%d)", s.Start, s.End) }

// Results is the capability shared by every result sequence variant.
type Results[T Item] interface {
	// EnsureRead blocks until at least n items are realized or production is done.
	// A negative n reads everything.
	EnsureRead(ctx context.Context, n int) error
	// Get returns item i. ok=false means there are fewer than i+1 items.
	Get(ctx context.Context, i int) (item T, ok bool, err error)
	// Iterator returns a lazy forward iterator over the items.
	Iterator(ctx context.Context) *Iterator[T]
	// ProcessedAtLeast reports whether at least n items have been processed,
	// reading only as far as necessary.
	ProcessedAtLeast(ctx context.Context, n int) (bool, error)
	// ProcessedTotal drains production and returns the number of processed items.
	ProcessedTotal(ctx context.Context) (int, error)
	// ProcessedSoFar is a non-blocking snapshot of the processed count.
	ProcessedSoFar() int
	// SizeSoFar is a non-blocking snapshot of the realized count.
	SizeSoFar() int
	// Done reports whether production finished.
	Done() bool
	// Stats is a non-blocking snapshot of the counters.
	Stats() Stats
	WindowStats() *WindowStats
	SampleParameters() *SampleParameters
	CapturedGroups() *CapturedGroups[T]
	// SizeEstimate approximates the memory held by realized items, in bytes.
	SizeEstimate() int64
}

// Stats is a snapshot of a sequence's progress counters.
type Stats struct {
	Processed     int
	Retrieved     int
	Counted       int
	DocsRetrieved int
	DocsCounted   int
	Done          bool
	MaxStats      MaxStats
}

// MaxSettings caps how many items are stored and counted. Zero means unlimited.
type MaxSettings struct {
	MaxRetrieve int
	MaxCount    int
}

// MaxStats records which of the MaxSettings limits were hit.
type MaxStats struct {
	RetrieveExceeded bool
	CountExceeded    bool
}

// WindowStats describes a bounded sub-range view of a larger sequence.
type WindowStats struct {
	First     int
	Requested int
	Actual    int
	HasNext   bool
}

// HasPrevious reports whether items precede the window.
func (w WindowStats) HasPrevious() bool { return w.First > 0 }

// SampleParameters describes a random subsample of a larger sequence.
// Exactly one of Percentage (0..1] and Number is set.
type SampleParameters struct {
	Percentage float64
	Number     int
	Seed       uint64
}

// NumberOfItems returns how many items to sample out of total.
func (p SampleParameters) NumberOfItems(total int) int {
	n := p.Number
	if p.Percentage > 0 {
		n = int(float64(total) * p.Percentage)
	}
	if n > total {
		n = total
	}
	if n < 0 {
		n = 0
	}
	return n
}

func (p SampleParameters) String() string {
	if p.Percentage > 0 {
		return fmt.Sprintf("sample=%g%%,seed=%d", p.Percentage*100, p.Seed)
	}
	return fmt.Sprintf("samplenum=%d,seed=%d", p.Number, p.Seed)
}
