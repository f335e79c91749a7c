package db

import (
	"context"
	"time"
)

// Store is the database facade used by the forward index.
type Store interface {
	Pinger
	KVStore
	ListStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// ListItem holds a key and the values to append to its list.
type ListItem struct {
	Key    string
	Values []string
}

// ListStore provides list operations.
type ListStore interface {
	// RPushMulti appends every item in a single round-trip.
	RPushMulti(ctx context.Context, items []ListItem) error
	// LRange returns elements start..stop inclusive; negative indexes count from the end.
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	// LRangeMulti returns whole lists for several keys in a single round-trip.
	LRangeMulti(ctx context.Context, keys []string) ([][]string, error)
}
