package collections

import (
	"cmp"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type item struct {
	key   int
	label string
}

func byKey(a, b item) int { return cmp.Compare(a.key, b.key) }

func labels(items []item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.label
	}
	return out
}

func TestSortedQueue_NewSortsSeed(t *testing.T) {
	q := NewSortedQueue(cmp.Compare[int], 5, 1, 4, 2, 3)

	assert.Equal(t, []int{1, 2, 3, 4, 5}, q.Items())
	assert.Equal(t, 5, q.Len())
}

func TestSortedQueue_AddKeepsOrder(t *testing.T) {
	q := NewSortedQueue(cmp.Compare[int])
	q.Add(30, 10, 20)
	q.Add(15)
	q.Add(40, 0)

	assert.Equal(t, []int{0, 10, 15, 20, 30, 40}, q.Items())
}

func TestSortedQueue_StableForEqualKeys(t *testing.T) {
	q := NewSortedQueue(byKey,
		item{key: 1, label: "seed-a"},
		item{key: 1, label: "seed-b"},
	)
	q.Add(item{key: 0, label: "zero"})
	q.Add(item{key: 1, label: "added-c"})
	q.Add(item{key: 2, label: "two"})
	q.Add(item{key: 1, label: "added-d"})

	assert.Equal(t,
		[]string{"zero", "seed-a", "seed-b", "added-c", "added-d", "two"},
		labels(q.Items()),
	)
}

func TestSortedQueue_PeekAndDraw(t *testing.T) {
	q := NewSortedQueue(cmp.Compare[int], 2, 1)

	head, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, 1, head)
	assert.Equal(t, 2, q.Len(), "peek must not remove")

	first, ok := q.Draw()
	require.True(t, ok)
	assert.Equal(t, 1, first)

	second, ok := q.Draw()
	require.True(t, ok)
	assert.Equal(t, 2, second)

	_, ok = q.Draw()
	assert.False(t, ok, "draw from empty queue should return false")

	_, ok = q.Peek()
	assert.False(t, ok, "peek on empty queue should return false")
}

func TestSortedQueue_DrawWhile(t *testing.T) {
	q := NewSortedQueue(cmp.Compare[int], 1, 2, 3, 10, 11)

	low := q.DrawWhile(func(v int) bool { return v < 10 })

	assert.Equal(t, []int{1, 2, 3}, low)
	assert.Equal(t, []int{10, 11}, q.Items())
}

func TestSortedQueue_Remove(t *testing.T) {
	q := NewSortedQueue(cmp.Compare[int], 1, 2, 3, 4, 5, 6)

	removed := q.Remove(func(v int) bool { return v%2 == 0 })

	assert.Equal(t, 3, removed)
	assert.Equal(t, []int{1, 3, 5}, q.Items())
	assert.Equal(t, 0, q.Remove(func(v int) bool { return v > 100 }))
}

func TestSortedQueue_ItemsIsCopy(t *testing.T) {
	q := NewSortedQueue(cmp.Compare[int], 1, 2)

	snapshot := q.Items()
	snapshot[0] = 99

	assert.Equal(t, []int{1, 2}, q.Items())
}

func TestSortedQueue_All(t *testing.T) {
	q := NewSortedQueue(cmp.Compare[int], 3, 1, 2)

	var got []int
	for v := range q.All() {
		got = append(got, v)
		if v == 2 {
			break
		}
	}

	assert.Equal(t, []int{1, 2}, got)
	assert.Equal(t, 3, q.Len(), "iteration must not consume")
}

func TestSortedQueue_Clear(t *testing.T) {
	q := NewSortedQueue(cmp.Compare[int], 1, 2, 3)
	q.Clear()

	assert.Equal(t, 0, q.Len())
	_, ok := q.Draw()
	assert.False(t, ok)
}

func TestSortedQueue_ConcurrentAddAndDraw(t *testing.T) {
	q := NewSortedQueue(cmp.Compare[int])

	const producers = 8
	const perProducer = 200

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := range perProducer {
				q.Add(base*perProducer + i)
			}
		}(p)
	}
	wg.Wait()

	require.Equal(t, producers*perProducer, q.Len())
	assert.True(t, slices.IsSorted(q.Items()))

	var (
		mu   sync.Mutex
		seen = make(map[int]bool)
	)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				v, ok := q.Draw()
				if !ok {
					return
				}
				mu.Lock()
				assert.False(t, seen[v], "value %d drawn twice", v)
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, producers*perProducer)
}
