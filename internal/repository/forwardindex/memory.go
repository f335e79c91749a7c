package forwardindex

import (
	"context"
	"fmt"
	"sync"

	"github.com/docusmart/blacklab/internal/corpus"
	"github.com/docusmart/blacklab/internal/domain"
)

// Memory serves tokens straight from in-memory corpus indexes, keyed by index ID.
type Memory struct {
	mu      sync.RWMutex
	indexes map[string]*corpus.Index
}

// NewMemory returns a source over the given indexes.
func NewMemory(indexes ...*corpus.Index) *Memory {
	m := &Memory{indexes: make(map[string]*corpus.Index, len(indexes))}
	for _, ix := range indexes {
		m.indexes[ix.ID()] = ix
	}
	return m
}

// Put registers an index under its ID.
func (m *Memory) Put(_ context.Context, ix *corpus.Index) error {
	m.mu.Lock()
	m.indexes[ix.ID()] = ix
	m.mu.Unlock()
	return nil
}

// Drop forgets the index with the given ID.
func (m *Memory) Drop(_ context.Context, index string) error {
	m.mu.Lock()
	delete(m.indexes, index)
	m.mu.Unlock()
	return nil
}

// Tokens returns the token lists of docs, in order.
func (m *Memory) Tokens(_ context.Context, index string, docs []int) ([][]string, error) {
	m.mu.RLock()
	ix, ok := m.indexes[index]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("forward index %s: %w", index, domain.ErrNotFound)
	}

	out := make([][]string, len(docs))
	for i, doc := range docs {
		out[i] = ix.Tokens(doc)
	}
	return out, nil
}
