package forwardindex

import (
	"context"
	"strings"
	"sync"

	"github.com/docusmart/blacklab/internal/db"
)

// mockStore is an in-memory implementation of the consumer interface.
type mockStore struct {
	mu     sync.Mutex
	kv     map[string][]byte
	lists  map[string][]string
	pushes int
	loads  int
	err    error
}

func newMockStore() *mockStore {
	return &mockStore{kv: map[string][]byte{}, lists: map[string][]string{}}
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = value
	return nil
}

func (m *mockStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.kv, k)
		delete(m.lists, k)
	}
	return nil
}

func (m *mockStore) Scan(_ context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range m.kv {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	for k := range m.lists {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *mockStore) RPushMulti(_ context.Context, items []db.ListItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushes++
	for _, it := range items {
		if len(it.Values) > 0 {
			m.lists[it.Key] = append(m.lists[it.Key], it.Values...)
		}
	}
	return nil
}

func (m *mockStore) LRangeMulti(_ context.Context, keys []string) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]string, len(keys))
	for i, k := range keys {
		out[i] = m.lists[k]
	}
	return out, nil
}
