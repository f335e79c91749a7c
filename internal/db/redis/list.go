package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/docusmart/blacklab/internal/db"
)

// RPushMulti appends values to several lists in a single DoMulti round-trip.
func (s *Store) RPushMulti(ctx context.Context, items []db.ListItem) error {
	cmds := make(rueidis.Commands, 0, len(items))
	for _, item := range items {
		if len(item.Values) == 0 {
			continue
		}
		cmds = append(cmds, s.b().Rpush().Key(item.Key).Element(item.Values...).Build())
	}
	if len(cmds) == 0 {
		return nil
	}

	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpRPush, Err: fmt.Errorf("command %d: %w", i, err)}
		}
	}
	return nil
}

// LRange returns list elements start..stop inclusive.
func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	cmd := s.b().Lrange().Key(key).Start(start).Stop(stop).Build()
	vals, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpLRange, Err: err}
	}
	return vals, nil
}

// LRangeMulti fetches whole lists for several keys in a single DoMulti round-trip.
// A missing key yields an empty list.
func (s *Store) LRangeMulti(ctx context.Context, keys []string) ([][]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make(rueidis.Commands, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Lrange().Key(key).Start(0).Stop(-1).Build()
	}

	out := make([][]string, len(keys))
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		vals, err := res.AsStrSlice()
		if err != nil {
			return nil, &db.Error{Op: db.OpLRange, Err: fmt.Errorf("key %s: %w", keys[i], err)}
		}
		out[i] = vals
	}
	return out, nil
}
