package collections

import "sync"

// CombinedQueue draws from several SortedQueues as if they were one.
//
// Sources are not copied: drawing from a CombinedQueue removes the element
// from the source it came from. Sources may also be used directly while the
// CombinedQueue holds them.
type CombinedQueue[T any] struct {
	mu      sync.Mutex
	cmp     func(a, b T) int
	sources []*SortedQueue[T]
}

// NewCombinedQueue creates a merged view ordered by cmp.
// Source order breaks ties: on equal heads, the earlier source wins.
func NewCombinedQueue[T any](cmp func(a, b T) int, sources ...*SortedQueue[T]) *CombinedQueue[T] {
	c := &CombinedQueue[T]{cmp: cmp}
	for _, src := range sources {
		if src != nil {
			c.sources = append(c.sources, src)
		}
	}
	return c
}

// AddSource appends a source; it ranks after all existing sources on ties.
func (c *CombinedQueue[T]) AddSource(src *SortedQueue[T]) {
	if src == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = append(c.sources, src)
}

// Peek returns the element the next Draw would return.
func (c *CombinedQueue[T]) Peek() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, _, _, ok := c.best()
	return item, ok
}

// Draw removes and returns the smallest head across all sources.
// Returns (zero, false) when every source is empty.
func (c *CombinedQueue[T]) Draw() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		_, idx, version, ok := c.best()
		if !ok {
			var zero T
			return zero, false
		}
		// A source changed under us; rescan.
		if item, drawn := c.sources[idx].drawIfVersion(version); drawn {
			return item, true
		}
	}
}

// best scans the source heads. Caller must hold c.mu.
func (c *CombinedQueue[T]) best() (item T, idx int, version uint64, ok bool) {
	for i, src := range c.sources {
		head, v, has := src.peekVersion()
		if !has {
			continue
		}
		if !ok || c.cmp(head, item) < 0 {
			item, idx, version, ok = head, i, v, true
		}
	}
	return item, idx, version, ok
}

// Len returns the total number of elements across all sources.
func (c *CombinedQueue[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, src := range c.sources {
		n += src.Len()
	}
	return n
}

// Drain draws every element in merged order.
func (c *CombinedQueue[T]) Drain() []T {
	var out []T
	for {
		item, ok := c.Draw()
		if !ok {
			return out
		}
		out = append(out, item)
	}
}
