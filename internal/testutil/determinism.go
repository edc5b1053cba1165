package testutil

import (
	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/event"
	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/trace"
)

// DefaultRaisePrefix is used when a scenario does not name its raise IDs.
const DefaultRaisePrefix = "test-raise"

// Deterministic returns event options that make raises reproducible:
// a fresh logical clock whose first seq is 1, and raise IDs
// "<prefix>-1", "<prefix>-2", ... in raise order.
//
// The same raises with the same options produce byte-identical traces.
func Deterministic(prefix string, tracer trace.Tracer) []event.Option {
	if prefix == "" {
		prefix = DefaultRaisePrefix
	}
	return []event.Option{
		event.WithClock(event.NewClock()),
		event.WithRaiseIDs(event.NewSequenceGenerator(prefix)),
		event.WithTracer(tracer),
	}
}

// FixedRaiseIDGenerator returns the same raise ID every time.
//
// Useful for single-raise tests that compare against a golden trace. Two
// raises with one FixedRaiseIDGenerator share an ID, so do not journal
// them together.
//
// Thread-safety: stateless and safe for concurrent use.
type FixedRaiseIDGenerator struct {
	id string
}

// NewFixedRaiseIDGenerator creates a fixed generator. An empty id becomes
// "test-raise-default".
func NewFixedRaiseIDGenerator(id string) *FixedRaiseIDGenerator {
	if id == "" {
		id = DefaultRaisePrefix + "-default"
	}
	return &FixedRaiseIDGenerator{id: id}
}

// Generate returns the fixed raise ID.
// Implements event.RaiseIDGenerator.
func (g *FixedRaiseIDGenerator) Generate() string {
	return g.id
}
