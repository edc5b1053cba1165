package journal

import (
	"context"
	"slices"
	"sync"

	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/trace"
)

// Recorder is a trace.Tracer that buffers entries until Flush writes them
// to the journal. Trace never blocks on the database.
type Recorder struct {
	j *Journal

	flushMu sync.Mutex // serializes Flush

	mu      sync.Mutex
	pending []trace.Entry
}

// NewRecorder creates a recorder writing to j.
func NewRecorder(j *Journal) *Recorder {
	return &Recorder{j: j}
}

// Trace buffers e.
func (r *Recorder) Trace(e trace.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, e)
}

// Pending returns the number of buffered entries.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Flush writes buffered entries and returns how many were new. On error
// the entries stay buffered and a later Flush retries them.
func (r *Recorder) Flush(ctx context.Context) (int, error) {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	batch := r.snapshot()
	if len(batch) == 0 {
		return 0, nil
	}

	n, err := r.j.WriteEntries(ctx, batch)
	if err != nil {
		return 0, err
	}

	// Entries traced during the write stay queued.
	r.drop(len(batch))
	return n, nil
}

func (r *Recorder) snapshot() []trace.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.pending)
}

func (r *Recorder) drop(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = slices.Delete(r.pending, 0, min(n, len(r.pending)))
}
