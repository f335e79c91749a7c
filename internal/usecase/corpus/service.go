package corpus

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	idx "github.com/docusmart/blacklab/internal/corpus"
	"github.com/docusmart/blacklab/internal/domain"
	"github.com/docusmart/blacklab/internal/repository/forwardindex"
	"github.com/docusmart/blacklab/internal/results"
	"github.com/docusmart/blacklab/internal/searches"
)

// Settings apply to every search over a registered corpus.
type Settings struct {
	FetchMin           int
	Max                results.MaxSettings
	ContextParallelism int
}

// Info describes a registered corpus.
type Info struct {
	Name      string
	Documents int
}

// Service keeps the set of searchable corpora.
type Service struct {
	fi       ForwardIndex
	searches SearchInvalidator
	settings Settings
	logger   *zap.Logger

	mu      sync.RWMutex
	corpora map[string]*searches.Corpus
}

// New creates a corpus service.
func New(fi ForwardIndex, inv SearchInvalidator, settings Settings, logger *zap.Logger) *Service {
	return &Service{
		fi:       fi,
		searches: inv,
		settings: settings,
		logger:   logger,
		corpora:  make(map[string]*searches.Corpus),
	}
}

// Register stores the forward index of ix and makes it searchable.
// A corpus with the same name is replaced and its cached searches dropped.
func (s *Service) Register(ctx context.Context, ix *idx.Index) (*searches.Corpus, error) {
	if err := s.fi.Put(ctx, ix); err != nil {
		return nil, fmt.Errorf("store forward index: %w", err)
	}

	c := &searches.Corpus{
		Index:    ix,
		Contexts: forwardindex.NewFetcher(s.fi, ix.ID(), s.settings.ContextParallelism),
		FetchMin: s.settings.FetchMin,
		Max:      s.settings.Max,
	}

	s.mu.Lock()
	old, replaced := s.corpora[ix.Name()]
	s.corpora[ix.Name()] = c
	s.mu.Unlock()

	if replaced && old.Index != ix {
		old.Index.Close()
		n := s.searches.RemoveSearchesForIndex(ix.Name())
		if err := s.fi.Drop(ctx, old.Index.ID()); err != nil {
			s.logger.Warn("drop replaced forward index",
				zap.String("corpus", ix.Name()), zap.String("index_id", old.Index.ID()), zap.Error(err))
		}
		s.logger.Info("corpus replaced", zap.String("corpus", ix.Name()), zap.Int("searches_dropped", n))
	}
	s.logger.Info("corpus registered", zap.String("corpus", ix.Name()), zap.Int("documents", ix.Documents()))
	return c, nil
}

// Get returns a registered corpus.
func (s *Service) Get(name string) (*searches.Corpus, error) {
	s.mu.RLock()
	c, ok := s.corpora[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("corpus %q: %w", name, domain.ErrNotFound)
	}
	return c, nil
}

// List returns all corpora ordered by name.
func (s *Service) List() []Info {
	s.mu.RLock()
	out := make([]Info, 0, len(s.corpora))
	for name, c := range s.corpora {
		out = append(out, Info{Name: name, Documents: c.Index.Documents()})
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b Info) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

// Remove closes a corpus, drops its cached searches and its forward index.
// Running searches over it fail with ErrIndexClosed.
func (s *Service) Remove(ctx context.Context, name string) error {
	s.mu.Lock()
	c, ok := s.corpora[name]
	delete(s.corpora, name)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("corpus %q: %w", name, domain.ErrNotFound)
	}

	c.Index.Close()
	n := s.searches.RemoveSearchesForIndex(name)
	if err := s.fi.Drop(ctx, c.Index.ID()); err != nil {
		return fmt.Errorf("drop forward index: %w", err)
	}
	s.logger.Info("corpus removed", zap.String("corpus", name), zap.Int("searches_dropped", n))
	return nil
}
