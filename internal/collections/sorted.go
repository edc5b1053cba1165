package collections

import (
	"iter"
	"slices"
	"sync"
)

// SortedQueue is a thread-safe queue kept in comparator order.
//
// The zero value is not usable; construct with NewSortedQueue.
type SortedQueue[T any] struct {
	mu    sync.Mutex
	cmp   func(a, b T) int
	items []T

	// version changes on every mutation; CombinedQueue uses it to detect a
	// head that moved between peek and draw.
	version uint64
}

// NewSortedQueue creates a queue ordered by cmp and seeds it with items.
// cmp follows the slices.SortFunc convention (negative when a < b).
func NewSortedQueue[T any](cmp func(a, b T) int, items ...T) *SortedQueue[T] {
	q := &SortedQueue[T]{
		cmp:   cmp,
		items: make([]T, 0, len(items)),
	}
	q.items = append(q.items, items...)
	slices.SortStableFunc(q.items, cmp)
	return q
}

// Add inserts items, each after any existing element that compares equal.
func (q *SortedQueue[T]) Add(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, item := range items {
		i := q.upperBound(item)
		q.items = slices.Insert(q.items, i, item)
	}
	if len(items) > 0 {
		q.version++
	}
}

// upperBound returns the index of the first element strictly greater than
// item. Caller must hold q.mu.
func (q *SortedQueue[T]) upperBound(item T) int {
	lo, hi := 0, len(q.items)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if q.cmp(q.items[mid], item) <= 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Peek returns the head without removing it.
func (q *SortedQueue[T]) Peek() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.items[0], true
}

// Draw removes and returns the head.
// Returns (zero, false) if the queue is empty.
func (q *SortedQueue[T]) Draw() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.drawLocked()
}

func (q *SortedQueue[T]) drawLocked() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}

	item := q.items[0]
	q.version++

	// Clear the vacated slot so the backing array does not pin the element.
	q.items[0] = zero
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return item, true
}

// DrawWhile removes and returns leading elements for which keep reports true.
// It stops at the first element that fails the predicate.
func (q *SortedQueue[T]) DrawWhile(keep func(T) bool) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []T
	for len(q.items) > 0 && keep(q.items[0]) {
		item, _ := q.drawLocked()
		out = append(out, item)
	}
	return out
}

// Remove deletes every element matching pred and returns how many were
// removed. Relative order of the remaining elements is preserved.
func (q *SortedQueue[T]) Remove(pred func(T) bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	before := len(q.items)
	q.items = slices.DeleteFunc(q.items, pred)
	removed := before - len(q.items)
	if removed > 0 {
		q.version++
	}
	return removed
}

// Len returns the number of queued elements.
func (q *SortedQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Items returns a copy of the queue contents in order.
func (q *SortedQueue[T]) Items() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.items)
}

// All iterates over a snapshot taken when iteration starts.
func (q *SortedQueue[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, item := range q.Items() {
			if !yield(item) {
				return
			}
		}
	}
}

// Clear removes every element.
func (q *SortedQueue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	clear(q.items)
	q.items = q.items[:0]
	q.version++
}

// peekVersion returns the head together with the current version.
func (q *SortedQueue[T]) peekVersion() (T, uint64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		var zero T
		return zero, q.version, false
	}
	return q.items[0], q.version, true
}

// drawIfVersion draws the head only if nothing changed since version.
func (q *SortedQueue[T]) drawIfVersion(version uint64) (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.version != version {
		var zero T
		return zero, false
	}
	return q.drawLocked()
}
