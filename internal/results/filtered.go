package results

import (
	"context"
	"errors"
	"fmt"

	"github.com/docusmart/blacklab/internal/domain"
)

// PropertyValue is the comparable value of an item property.
type PropertyValue string

// Context holds the tokens around and inside an item.
type Context struct {
	Left  []string
	Match []string
	Right []string
}

// Property derives a value from an item. Properties with ContextSize > 0
// read the item's surrounding tokens and need a ContextFetcher.
type Property[T Item] interface {
	Name() string
	ContextSize() int
	// Value computes the property for item; c is nil when no context was fetched.
	Value(item T, c *Context) PropertyValue
}

// ContextFetcher bulk-loads contexts, one per item and in the same order.
type ContextFetcher[T Item] interface {
	Contexts(ctx context.Context, items []T, size int) ([]Context, error)
}

// Filtered is a lazy view keeping the source items whose property equals a
// target value. Kept items preserve source order.
type Filtered[T Item] struct {
	*lazy[T]

	prop  Property[T]
	value PropertyValue

	// Guarded by the production lock.
	source        Results[T]
	sourceGroups  *CapturedGroups[T]
	contexts      []Context
	indexInSource int
}

// NewFiltered builds a filtered view over source.
//
// When the property needs context, the whole source is materialized up front
// and contexts for every source item are fetched in one bulk call.
func NewFiltered[T Item](ctx context.Context, source Results[T], prop Property[T], value PropertyValue, fetcher ContextFetcher[T], opts ...Option) (*Filtered[T], error) {
	o := buildOptions(opts)
	sourceGroups := source.CapturedGroups()
	if sourceGroups != nil && o.groupNames == nil {
		o.groupNames = append([]string{}, sourceGroups.Names()...)
	}
	f := &Filtered[T]{
		lazy:          newLazy[T](o),
		prop:          prop,
		value:         value,
		source:        source,
		sourceGroups:  sourceGroups,
		indexInSource: -1,
	}
	f.step = f.next

	if size := prop.ContextSize(); size > 0 {
		if fetcher == nil {
			return nil, fmt.Errorf("filter on %s needs context: %w", prop.Name(), domain.ErrInvalidQuery)
		}
		items, err := drain(ctx, source)
		if err != nil {
			return nil, err
		}
		contexts, err := fetcher.Contexts(ctx, items, size)
		if err != nil {
			return nil, fmt.Errorf("fetch contexts: %w", err)
		}
		if len(contexts) != len(items) {
			return nil, fmt.Errorf("fetch contexts: got %d for %d items", len(contexts), len(items))
		}
		f.contexts = contexts
	}
	return f, nil
}

func drain[T Item](ctx context.Context, src Results[T]) ([]T, error) {
	if err := src.EnsureRead(ctx, -1); err != nil {
		return nil, err
	}
	items := make([]T, 0, src.SizeSoFar())
	it := src.Iterator(ctx)
	for it.Next() {
		items = append(items, it.Item())
	}
	return items, it.Err()
}

func (f *Filtered[T]) next(ctx context.Context) error {
	i := f.indexInSource + 1
	item, ok, err := f.source.Get(ctx, i)
	if err != nil {
		if errors.Is(err, domain.ErrInterruptedSearch) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Interrupted(errors.Join(ctxErr, err))
		}
		f.release(err)
		return err
	}
	if !ok {
		f.release(nil)
		return nil
	}
	f.indexInSource = i

	var c *Context
	if f.contexts != nil {
		c = &f.contexts[i]
	}
	if f.prop.Value(item, c) != f.value {
		return nil
	}
	if f.max.MaxCount > 0 && f.ProcessedSoFar() >= f.max.MaxCount {
		f.countExceeded.Store(true)
		f.release(nil)
		return nil
	}
	f.processed.Add(1)
	f.countItem(item)

	var groups []Span
	if f.sourceGroups != nil && f.groups != nil {
		groups, _ = f.sourceGroups.Raw(item)
	}
	f.keep(item, groups)
	return nil
}

func (f *Filtered[T]) release(err error) {
	f.source = nil
	f.sourceGroups = nil
	f.contexts = nil
	f.finish(err)
}

// Property returns the filter property.
func (f *Filtered[T]) Property() Property[T] { return f.prop }

// Value returns the target value.
func (f *Filtered[T]) Value() PropertyValue { return f.value }

func (f *Filtered[T]) String() string {
	st := f.Stats()
	return fmt.Sprintf("Filtered(%s=%q, retrieved=%d, done=%v)", f.prop.Name(), f.value, st.Retrieved, st.Done)
}
