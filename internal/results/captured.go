package results

import (
	"fmt"
	"sync"
	"unsafe"
)

// CapturedGroups holds named sub-spans per item. The name list is fixed at
// construction and every stored array has one span per name.
//
// A single producer writes while results are materialized; any number of
// readers may look entries up concurrently.
type CapturedGroups[T comparable] struct {
	names []string

	mu     sync.RWMutex
	groups map[T][]Span
}

// NewCapturedGroups returns an empty set with the given group names.
func NewCapturedGroups[T comparable](names []string) *CapturedGroups[T] {
	return &CapturedGroups[T]{
		names:  names,
		groups: make(map[T][]Span),
	}
}

// Names returns the ordered group names.
func (c *CapturedGroups[T]) Names() []string { return c.names }

// Len returns the number of items with captured groups.
func (c *CapturedGroups[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.groups)
}

// Put stores a copy of the groups for item. groups must have one span per name.
func (c *CapturedGroups[T]) Put(item T, groups []Span) {
	if len(groups) != len(c.names) {
		panic(fmt.Sprintf("captured groups: got %d spans for %d names", len(groups), len(c.names)))
	}
	stored := append([]Span(nil), groups...)
	c.mu.Lock()
	c.groups[item] = stored
	c.mu.Unlock()
}

// PutAll copies every entry of other into c; entries of other win on collision.
func (c *CapturedGroups[T]) PutAll(other *CapturedGroups[T]) {
	if other == nil || other == c {
		return
	}
	other.mu.RLock()
	defer other.mu.RUnlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	for item, groups := range other.groups {
		c.groups[item] = groups
	}
}

// Get returns the spans for item, or nil if it has none. With omitEmpty,
// zero-length spans come back as nil entries in a copy; the stored array is
// never modified.
func (c *CapturedGroups[T]) Get(item T, omitEmpty bool) []*Span {
	c.mu.RLock()
	groups, ok := c.groups[item]
	c.mu.RUnlock()
	if !ok {
		return nil
	}
	out := make([]*Span, len(groups))
	for i := range groups {
		if omitEmpty && groups[i].Len() == 0 {
			continue
		}
		span := groups[i]
		out[i] = &span
	}
	return out
}

// Raw returns the stored span array for item without normalization.
func (c *CapturedGroups[T]) Raw(item T) ([]Span, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	groups, ok := c.groups[item]
	return groups, ok
}

// NamedSpan is one entry of GetMap.
type NamedSpan struct {
	Name string
	Span *Span
}

// GetMap returns the groups for item as ordered name/span pairs.
// This is the slow path; prefer Get in loops. Without omitEmpty an
// unmatched group is present with a nil span; with omitEmpty it is skipped.
func (c *CapturedGroups[T]) GetMap(item T, omitEmpty bool) []NamedSpan {
	spans := c.Get(item, omitEmpty)
	if spans == nil {
		return nil
	}
	out := make([]NamedSpan, 0, len(spans))
	for i, name := range c.names {
		if omitEmpty && spans[i] == nil {
			continue
		}
		out = append(out, NamedSpan{Name: name, Span: spans[i]})
	}
	return out
}

func (c *CapturedGroups[T]) sizeEstimate() int64 {
	var zero T
	per := int64(unsafe.Sizeof(zero)) + int64(len(c.names))*int64(unsafe.Sizeof(Span{}))
	return int64(c.Len()) * per
}

func (c *CapturedGroups[T]) String() string {
	return fmt.Sprintf("CapturedGroups(names=%v, items=%d)", c.names, c.Len())
}
