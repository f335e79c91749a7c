package results

import "context"

type indexed[T any] interface {
	EnsureRead(ctx context.Context, n int) error
	Get(ctx context.Context, i int) (T, bool, error)
}

// Iterator walks a result sequence forward, reading one item ahead of the
// cursor. It is finite and cannot be restarted.
//
//	it := seq.Iterator(ctx)
//	for it.Next() {
//		use(it.Item())
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator[T any] struct {
	ctx  context.Context
	src  indexed[T]
	pos  int
	item T
	err  error
	end  bool
}

func newIterator[T any](ctx context.Context, src indexed[T]) *Iterator[T] {
	return &Iterator[T]{ctx: ctx, src: src, pos: -1}
}

// Next advances to the next item and reports whether there is one.
func (it *Iterator[T]) Next() bool {
	if it.end {
		return false
	}
	// Look one past the next position so HasNext-style callers never block twice.
	if err := it.src.EnsureRead(it.ctx, it.pos+2); err != nil {
		it.fail(err)
		return false
	}
	item, ok, err := it.src.Get(it.ctx, it.pos+1)
	if err != nil {
		it.fail(err)
		return false
	}
	if !ok {
		it.end = true
		return false
	}
	it.pos++
	it.item = item
	return true
}

func (it *Iterator[T]) fail(err error) {
	it.err = err
	it.end = true
}

// Item returns the item at the cursor.
func (it *Iterator[T]) Item() T { return it.item }

// Index returns the cursor position, -1 before the first Next.
func (it *Iterator[T]) Index() int { return it.pos }

// Err returns the error that stopped iteration, if any.
func (it *Iterator[T]) Err() error { return it.err }
