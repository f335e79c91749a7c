package results

import "sync/atomic"

const (
	chunkBits = 8
	chunkSize = 1 << chunkBits
	chunkMask = chunkSize - 1
)

// appendLog is an append-only list with a single writer and lock-free readers.
//
// Items live in fixed-size chunks that never move once allocated. The writer
// fills a slot and then publishes the new length with an atomic store; a
// reader loads the length first, so every slot below it is fully written.
// Growing the chunk directory copies only the pointer slice.
type appendLog[T any] struct {
	length atomic.Int64
	chunks atomic.Pointer[[]*[chunkSize]T]
}

// Len returns the published number of items.
func (l *appendLog[T]) Len() int {
	return int(l.length.Load())
}

// append adds v. Only the production path may call it.
func (l *appendLog[T]) append(v T) {
	n := l.length.Load()
	ci, off := int(n>>chunkBits), int(n&chunkMask)

	var dir []*[chunkSize]T
	if p := l.chunks.Load(); p != nil {
		dir = *p
	}
	if ci == len(dir) {
		grown := make([]*[chunkSize]T, len(dir)+1, len(dir)*2+1)
		copy(grown, dir)
		grown[ci] = new([chunkSize]T)
		l.chunks.Store(&grown)
		dir = grown
	}
	dir[ci][off] = v
	l.length.Store(n + 1)
}

// at returns item i. The caller must have observed Len() > i.
func (l *appendLog[T]) at(i int) T {
	dir := *l.chunks.Load()
	return dir[i>>chunkBits][i&chunkMask]
}

// snapshot copies items [from, to) into a new slice, clamped to the published length.
func (l *appendLog[T]) snapshot(from, to int) []T {
	n := l.Len()
	if to > n {
		to = n
	}
	if from < 0 {
		from = 0
	}
	if from >= to {
		return nil
	}
	out := make([]T, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, l.at(i))
	}
	return out
}
