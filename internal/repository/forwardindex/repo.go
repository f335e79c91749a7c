// Package forwardindex stores per-document token lists and serves hit
// contexts from them.
package forwardindex

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/docusmart/blacklab/internal/corpus"
	"github.com/docusmart/blacklab/internal/db"
	"github.com/docusmart/blacklab/internal/domain"
)

// putBatch is the number of documents written per round-trip.
const putBatch = 256

// store is the consumer interface for the forward index (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	RPushMulti(ctx context.Context, items []db.ListItem) error
	LRangeMulti(ctx context.Context, keys []string) ([][]string, error)
}

// Repo keeps token lists in Redis or Valkey, one list per document under
// <prefix>fi:<index>:<doc>, plus the document count under <prefix>fi:<index>:docs.
// <index> is the corpus index ID, so a replacement corpus of the same name
// is stored beside the one still being read.
type Repo struct {
	store  store
	prefix string
}

// New creates a forward index repository.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

func (r *Repo) docKey(index string, doc int) string {
	return r.prefix + "fi:" + index + ":" + strconv.Itoa(doc)
}

func (r *Repo) countKey(index string) string {
	return r.prefix + "fi:" + index + ":docs"
}

// Put stores the forward index of ix under ix.ID(), replacing leftovers
// stored under that ID.
func (r *Repo) Put(ctx context.Context, ix *corpus.Index) error {
	id := ix.ID()
	if err := r.Drop(ctx, id); err != nil {
		return err
	}

	n := ix.Documents()
	items := make([]db.ListItem, 0, putBatch)
	for doc := range n {
		items = append(items, db.ListItem{Key: r.docKey(id, doc), Values: ix.Tokens(doc)})
		if len(items) == putBatch || doc == n-1 {
			if err := r.store.RPushMulti(ctx, items); err != nil {
				return fmt.Errorf("store tokens of %s: %w", id, err)
			}
			items = items[:0]
		}
	}

	if err := r.store.Set(ctx, r.countKey(id), []byte(strconv.Itoa(n))); err != nil {
		return fmt.Errorf("store document count of %s: %w", id, err)
	}
	return nil
}

// Drop deletes every key of index.
func (r *Repo) Drop(ctx context.Context, index string) error {
	keys, err := r.store.Scan(ctx, r.prefix+"fi:"+index+":*")
	if err != nil {
		return fmt.Errorf("scan %s: %w", index, err)
	}
	if err := r.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("drop %s: %w", index, err)
	}
	return nil
}

// Documents returns the stored document count of index.
func (r *Repo) Documents(ctx context.Context, index string) (int, error) {
	raw, err := r.store.Get(ctx, r.countKey(index))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, fmt.Errorf("forward index %s: %w", index, domain.ErrNotFound)
		}
		return 0, fmt.Errorf("get document count of %s: %w", index, err)
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("parse document count of %s: %w", index, err)
	}
	return n, nil
}

// Tokens returns the token lists of docs, in order. Unknown documents yield empty lists.
func (r *Repo) Tokens(ctx context.Context, index string, docs []int) ([][]string, error) {
	keys := make([]string, len(docs))
	for i, doc := range docs {
		keys[i] = r.docKey(index, doc)
	}
	lists, err := r.store.LRangeMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load tokens of %s: %w", index, err)
	}
	return lists, nil
}
