package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/compiler"
	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/event"
	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/journal"
	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/testutil"
	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/trace"
)

// Options configures a scenario run.
type Options struct {
	// Journal receives the trace. When nil, Run uses a fresh in-memory
	// journal that is discarded afterwards.
	Journal *journal.Journal

	// Logger receives event logs. When nil, logs are discarded.
	Logger *slog.Logger

	// MaxDepth limits dependent nesting for every event. Zero keeps
	// event.DefaultMaxDepth. Per-event max_depth still wins.
	MaxDepth int
}

// Harness executes scenarios with a deterministic clock and raise IDs.
type Harness struct {
	journal  *journal.Journal
	recorder *trace.Recorder
	flusher  *journal.Recorder
	graph    *compiler.Graph
	logger   *slog.Logger
}

// Run executes a scenario with default options.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario, Options{})
}

// RunContext executes a scenario and returns the result.
//
// Execution flow:
//  1. Load the definition and analyze it for cycles
//  2. Build the events with deterministic options
//  3. Raise each step with a fresh payload
//  4. Flush the trace into the journal
//  5. Evaluate assertions
//
// A returned error means the scenario could not run at all. Failed
// expectations are reported in Result.Errors.
func RunContext(ctx context.Context, scenario *Scenario, opts Options) (*Result, error) {
	def, err := scenario.definition()
	if err != nil {
		return nil, fmt.Errorf("failed to load definition: %w", err)
	}

	j := opts.Journal
	if j == nil {
		j, err = journal.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
		}
		defer j.Close()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	}

	h := &Harness{
		journal:  j,
		recorder: trace.NewRecorder(),
		flusher:  journal.NewRecorder(j),
		logger:   logger,
	}

	evOpts := append(
		testutil.Deterministic(scenario.RaiseID, trace.Multi(h.recorder, h.flusher)),
		event.WithLogger(logger),
	)
	if opts.MaxDepth > 0 {
		evOpts = append(evOpts, event.WithMaxDepth(opts.MaxDepth))
	}
	h.graph, err = compiler.Build(def, evOpts...)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	for _, w := range compiler.AnalyzeCycles(def) {
		result.Warnings = append(result.Warnings, w.Message)
	}

	for i, step := range scenario.Raises {
		outcome, err := h.raise(ctx, i, step, result)
		if err != nil {
			return nil, err
		}
		result.Raises = append(result.Raises, outcome)
	}

	if _, err := h.flusher.Flush(ctx); err != nil {
		return nil, fmt.Errorf("failed to write journal: %w", err)
	}
	result.Trace = h.recorder.Entries()

	actx := &AssertionContext{Journal: j, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// raise runs one step and checks its error against the expectation.
func (h *Harness) raise(ctx context.Context, i int, step RaiseStep, result *Result) (RaiseOutcome, error) {
	ev, ok := h.graph.Event(step.Event)
	if !ok {
		return RaiseOutcome{}, fmt.Errorf("raises[%d]: unknown event %q", i, step.Event)
	}

	payload := compiler.NewPayload(step.Fields)
	if step.Cancelled {
		if err := payload.SetCancelled(true); err != nil {
			return RaiseOutcome{}, fmt.Errorf("raises[%d]: %w", i, err)
		}
	}

	h.logger.Debug("raising scenario step",
		"step", i,
		"event", step.Event,
		"post", step.runPost(),
	)

	var raiseErr error
	if step.runPost() {
		raiseErr = ev.RaiseAll(ctx, nil, payload)
	} else {
		raiseErr = ev.Raise(ctx, nil, payload)
	}

	outcome := RaiseOutcome{
		Event:     step.Event,
		RaiseID:   payload.RaiseID(),
		State:     payload.State().String(),
		Cancelled: payload.IsCancelled(),
		Fields:    payload.Fields(),
		members:   collectMembers(payload),
	}
	if raiseErr != nil {
		outcome.Error = raiseErr.Error()
	}

	switch {
	case step.ExpectError == "" && raiseErr != nil:
		result.AddError(fmt.Sprintf("raises[%d] (%s): unexpected error: %v", i, step.Event, raiseErr))
	case step.ExpectError != "" && raiseErr == nil:
		result.AddError(fmt.Sprintf("raises[%d] (%s): expected error containing %q, got none", i, step.Event, step.ExpectError))
	case step.ExpectError != "" && !strings.Contains(raiseErr.Error(), step.ExpectError):
		result.AddError(fmt.Sprintf("raises[%d] (%s): expected error containing %q, got: %v", i, step.Event, step.ExpectError, raiseErr))
	}

	return outcome, nil
}

// collectMembers flattens a payload tree depth first.
func collectMembers(root *compiler.Payload) []*compiler.Payload {
	out := []*compiler.Payload{root}
	for _, dep := range root.Dependents() {
		if p, ok := dep.(*compiler.Payload); ok {
			out = append(out, collectMembers(p)...)
		}
	}
	return out
}
