package trace

import (
	"slices"
	"sync"
)

// Kind classifies a trace entry.
type Kind string

const (
	// KindRaise marks the start of a phase for the root event of a group.
	KindRaise Kind = "raise"
	// KindDependent records a dependent event joining the raise group.
	KindDependent Kind = "dependent"
	// KindDispatch records one listener invocation.
	KindDispatch Kind = "dispatch"
	// KindSkip records a listener or dependent that was not run.
	KindSkip Kind = "skip"
	// KindImmutable records the point where group args stopped accepting
	// cancellation changes.
	KindImmutable Kind = "immutable"
	// KindPhase records the end of a phase.
	KindPhase Kind = "phase"
	// KindError records a rejected dependent or an interrupted phase.
	KindError Kind = "error"
)

// Phase identifies which raise phase produced an entry.
type Phase string

const (
	PhasePre  Phase = "pre"
	PhasePost Phase = "post"
)

// Entry is a single trace record.
type Entry struct {
	Seq       int64  `json:"seq"`
	RaiseID   string `json:"raise_id"`
	Kind      Kind   `json:"kind"`
	Phase     Phase  `json:"phase"`
	Event     string `json:"event"`
	Parent    string `json:"parent,omitempty"`
	Listener  string `json:"listener,omitempty"`
	Priority  int    `json:"priority"`
	Cancelled bool   `json:"cancelled"`
	Shared    bool   `json:"shared,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Map returns the entry as a map suitable for MarshalCanonical.
// Empty optional fields are omitted.
func (e Entry) Map() map[string]any {
	m := map[string]any{
		"seq":       e.Seq,
		"raise_id":  e.RaiseID,
		"kind":      string(e.Kind),
		"phase":     string(e.Phase),
		"event":     e.Event,
		"priority":  int64(e.Priority),
		"cancelled": e.Cancelled,
	}
	if e.Parent != "" {
		m["parent"] = e.Parent
	}
	if e.Listener != "" {
		m["listener"] = e.Listener
	}
	if e.Shared {
		m["shared"] = true
	}
	if e.Error != "" {
		m["error"] = e.Error
	}
	return m
}

// Tracer receives trace entries as a raise progresses.
//
// Trace may be called from any goroutine that raises an event. Entries of a
// single raise arrive in sequence order.
type Tracer interface {
	Trace(Entry)
}

// TracerFunc adapts a function to Tracer.
type TracerFunc func(Entry)

// Trace calls f(e).
func (f TracerFunc) Trace(e Entry) { f(e) }

// Discard is a Tracer that drops everything.
var Discard Tracer = TracerFunc(func(Entry) {})

// Multi fans entries out to several tracers in order. Nil tracers are
// skipped.
func Multi(tracers ...Tracer) Tracer {
	var ts []Tracer
	for _, t := range tracers {
		if t != nil {
			ts = append(ts, t)
		}
	}
	return TracerFunc(func(e Entry) {
		for _, t := range ts {
			t.Trace(e)
		}
	})
}

// Recorder is an in-memory Tracer. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Trace appends e.
func (r *Recorder) Trace(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.entries)
}

// Filter returns the recorded entries of the given kind.
func (r *Recorder) Filter(kind Kind) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Entry
	for _, e := range r.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Reset discards all recorded entries.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}
