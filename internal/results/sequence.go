package results

import (
	"context"
	"errors"
	"fmt"

	"github.com/docusmart/blacklab/internal/domain"
)

// Sequence is a result list materialized on demand from a Producer.
type Sequence[T Item] struct {
	*lazy[T]

	// Guarded by the production lock; dropped once production is done.
	producer Producer[T]
	grouped  GroupProducer[T]
}

// FromProducer returns a Sequence that pulls from p only as far as readers ask.
// If p captures groups, the sequence carries a CapturedGroups set.
func FromProducer[T Item](p Producer[T], opts ...Option) *Sequence[T] {
	o := buildOptions(opts)
	gp, grouped := p.(GroupProducer[T])
	if grouped && o.groupNames == nil {
		o.groupNames = append([]string{}, gp.GroupNames()...)
	}
	s := &Sequence[T]{
		lazy:     newLazy[T](o),
		producer: p,
	}
	if grouped {
		s.grouped = gp
	}
	s.step = s.next
	return s
}

// FromSlice returns a fully materialized Sequence holding items in order.
func FromSlice[T Item](items []T, opts ...Option) *Sequence[T] {
	s := &Sequence[T]{lazy: newLazy[T](buildOptions(opts))}
	for _, item := range items {
		s.processed.Add(1)
		s.countItem(item)
		s.keep(item, nil)
	}
	s.step = func(context.Context) error { return nil }
	s.finish(nil)
	return s
}

func (s *Sequence[T]) next(ctx context.Context) error {
	item, ok, err := s.producer.Next(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil || errors.Is(err, domain.ErrInterruptedSearch) {
			return domain.Interrupted(errors.Join(ctxErr, err))
		}
		s.release(err)
		return err
	}
	if !ok {
		s.release(nil)
		return nil
	}
	if s.max.MaxCount > 0 && s.ProcessedSoFar() >= s.max.MaxCount {
		s.countExceeded.Store(true)
		s.release(nil)
		return nil
	}
	s.processed.Add(1)
	s.countItem(item)

	var groups []Span
	if s.grouped != nil {
		groups = s.grouped.Groups()
	}
	s.keep(item, groups)
	return nil
}

func (s *Sequence[T]) release(err error) {
	s.producer = nil
	s.grouped = nil
	s.finish(err)
}

func (s *Sequence[T]) String() string {
	st := s.Stats()
	return fmt.Sprintf("Sequence(retrieved=%d, processed=%d, done=%v, window=%v)",
		st.Retrieved, st.Processed, st.Done, s.window != nil)
}
