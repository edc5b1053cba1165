package event

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Clock is a monotonic logical clock for trace ordering.
// Trace entries never carry wall-clock time, so replays compare equal.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that continues after start.
// Used to resume numbering from a journal.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last sequence number handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// defaultClock is shared by events created without WithClock so that
// sequence numbers stay unique across the process.
var defaultClock = NewClock()

// RaiseIDGenerator produces the identifier stamped on every entry of one
// raise group.
type RaiseIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 raise IDs.
// It is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequenceGenerator returns predetermined raise IDs in order, then falls
// back to "<prefix>-<n>". Safe for concurrent use.
type SequenceGenerator struct {
	mu     sync.Mutex
	ids    []string
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator that hands out ids first.
// An empty prefix defaults to "raise".
func NewSequenceGenerator(prefix string, ids ...string) *SequenceGenerator {
	if prefix == "" {
		prefix = "raise"
	}
	return &SequenceGenerator{ids: ids, prefix: prefix}
}

// Generate returns the next raise ID.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.n++
	if g.n <= len(g.ids) {
		return g.ids[g.n-1]
	}
	return g.prefix + "-" + strconv.Itoa(g.n)
}
