// Package corpus is an in-memory token index over a set of documents.
// It plays the matching engine: Find turns a phrase pattern into a lazy
// producer of hits in document order.
package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/docusmart/blacklab/internal/domain"
)

// Document is one indexed text.
type Document struct {
	ID     int
	Name   string
	Tokens []string
}

// generations numbers indexes in creation order across the process.
var generations atomic.Uint64

// Index holds documents and a posting bitmap per term.
type Index struct {
	name       string
	generation uint64
	closed     atomic.Bool

	mu       sync.RWMutex
	docs     []Document
	postings map[string]*roaring.Bitmap
}

// New returns an empty index.
func New(name string) *Index {
	return &Index{
		name:       name,
		generation: generations.Add(1),
		postings:   make(map[string]*roaring.Bitmap),
	}
}

// Load indexes every *.txt file in dir, one document per file, in name order.
func Load(name, dir string) (*Index, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	slices.Sort(paths)

	ix := New(name)
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		ix.Add(strings.TrimSuffix(filepath.Base(p), ".txt"), string(data))
	}
	return ix, nil
}

// Tokenize lowercases text and splits it on anything that is not a letter or digit.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, f := range fields {
		fields[i] = strings.ToLower(f)
	}
	return fields
}

// Add indexes text as a new document and returns its id.
func (ix *Index) Add(name, text string) int {
	tokens := Tokenize(text)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	id := len(ix.docs)
	ix.docs = append(ix.docs, Document{ID: id, Name: name, Tokens: tokens})
	for _, tok := range tokens {
		bm, ok := ix.postings[tok]
		if !ok {
			bm = roaring.New()
			ix.postings[tok] = bm
		}
		bm.Add(uint32(id))
	}
	return id
}

// Name returns the index name.
func (ix *Index) Name() string { return ix.name }

// Generation distinguishes indexes registered under the same name.
func (ix *Index) Generation() uint64 { return ix.generation }

// ID returns "<name>@<generation>", unique per index within the process.
// Data derived from one index is keyed by its ID, so a replacement never
// sees or overwrites it.
func (ix *Index) ID() string { return ix.name + "@" + strconv.FormatUint(ix.generation, 10) }

// Documents returns the number of documents.
func (ix *Index) Documents() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Document returns document id.
func (ix *Index) Document(id int) (Document, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if id < 0 || id >= len(ix.docs) {
		return Document{}, false
	}
	return ix.docs[id], true
}

// Tokens returns the token list of document id, or nil if it does not exist.
// The returned slice must not be modified.
func (ix *Index) Tokens(id int) []string {
	d, _ := ix.Document(id)
	return d.Tokens
}

// DocumentFrequency returns how many documents contain term.
func (ix *Index) DocumentFrequency(term string) uint64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if bm, ok := ix.postings[strings.ToLower(term)]; ok {
		return bm.GetCardinality()
	}
	return 0
}

// Close marks the index closed. Running producers fail with ErrIndexClosed.
func (ix *Index) Close() { ix.closed.Store(true) }

// Closed reports whether Close was called.
func (ix *Index) Closed() bool { return ix.closed.Load() }

// candidates returns the documents containing every literal term.
func (ix *Index) candidates(terms []term) *roaring.Bitmap {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var lists []*roaring.Bitmap
	for _, t := range terms {
		if t.any {
			continue
		}
		bm, ok := ix.postings[t.text]
		if !ok {
			return roaring.New()
		}
		lists = append(lists, bm)
	}
	if len(lists) == 0 {
		all := roaring.New()
		all.AddRange(0, uint64(len(ix.docs)))
		return all
	}
	return roaring.FastAnd(lists...)
}

func (ix *Index) checkOpen() error {
	if ix.Closed() {
		return fmt.Errorf("corpus %s: %w", ix.name, domain.ErrIndexClosed)
	}
	return nil
}
