package blacklab

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/docusmart/blacklab/internal/corpus"
	corpusuc "github.com/docusmart/blacklab/internal/usecase/corpus"
)

// corpusUseCase is the internal interface for corpus management.
type corpusUseCase interface {
	Register(ctx context.Context, ix *corpus.Index) (int, error)
	Remove(ctx context.Context, name string) error
	List() []CorpusInfo
}

// CorpusService manages the searchable corpora.
type CorpusService struct {
	svc corpusUseCase
	obs *observer
}

// Create indexes docs as a new corpus, replacing any corpus with that name.
// Searches cached for the replaced corpus are discarded.
func (s *CorpusService) Create(ctx context.Context, name string, docs ...Document) (info CorpusInfo, err error) {
	c := s.obs.begin("corpus.create", name)
	defer func() { c.done(err, zap.Int("documents", info.Documents)) }()

	ix := corpus.New(name)
	for _, d := range docs {
		ix.Add(d.Name, d.Text)
	}
	n, err := s.svc.Register(ctx, ix)
	if err != nil {
		return CorpusInfo{}, fmt.Errorf("create corpus: %w", err)
	}
	return CorpusInfo{Name: name, Documents: n}, nil
}

// Load indexes every *.txt file in dir as a corpus, one document per file.
func (s *CorpusService) Load(ctx context.Context, name, dir string) (info CorpusInfo, err error) {
	c := s.obs.begin("corpus.load", name, zap.String("dir", dir))
	defer func() { c.done(err, zap.Int("documents", info.Documents)) }()

	ix, err := corpus.Load(name, dir)
	if err != nil {
		return CorpusInfo{}, fmt.Errorf("load corpus: %w", err)
	}
	n, err := s.svc.Register(ctx, ix)
	if err != nil {
		return CorpusInfo{}, fmt.Errorf("load corpus: %w", err)
	}
	return CorpusInfo{Name: name, Documents: n}, nil
}

// List returns the registered corpora sorted by name.
func (s *CorpusService) List() []CorpusInfo {
	return s.svc.List()
}

// Remove closes a corpus and interrupts its running searches.
func (s *CorpusService) Remove(ctx context.Context, name string) (err error) {
	c := s.obs.begin("corpus.remove", name)
	defer func() { c.done(err) }()

	if err = s.svc.Remove(ctx, name); err != nil {
		return fmt.Errorf("remove corpus: %w", err)
	}
	return nil
}

// corpusAdapter exposes the corpus use case in SDK types.
type corpusAdapter struct {
	svc *corpusuc.Service
}

func (a corpusAdapter) Register(ctx context.Context, ix *corpus.Index) (int, error) {
	c, err := a.svc.Register(ctx, ix)
	if err != nil {
		return 0, err
	}
	return c.Index.Documents(), nil
}

func (a corpusAdapter) Remove(ctx context.Context, name string) error {
	return a.svc.Remove(ctx, name)
}

func (a corpusAdapter) List() []CorpusInfo {
	infos := a.svc.List()
	out := make([]CorpusInfo, len(infos))
	for i, info := range infos {
		out[i] = CorpusInfo{Name: info.Name, Documents: info.Documents}
	}
	return out
}
