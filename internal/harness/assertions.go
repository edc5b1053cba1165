package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/journal"
	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/trace"
)

// AssertionError is returned when an assertion fails.
// It includes the dispatches of the run to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Trace    []trace.Entry // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nDispatches:\n")
	for _, entry := range e.Trace {
		switch entry.Kind {
		case trace.KindDispatch:
			fmt.Fprintf(&buf, "  [%d] %s %s/%s (priority %d, cancelled=%t)\n",
				entry.Seq, entry.Phase, entry.Event, entry.Listener, entry.Priority, entry.Cancelled)
		case trace.KindSkip:
			fmt.Fprintf(&buf, "  [%d] %s %s/%s skipped\n", entry.Seq, entry.Phase, entry.Event, entry.Listener)
		}
	}

	return buf.String()
}

// AssertionContext provides journal access for assertions that inspect
// persisted raises.
type AssertionContext struct {
	Journal *journal.Journal
	Ctx     context.Context
}

// listenerRef formats an entry as "event/label".
func listenerRef(e trace.Entry) string {
	return e.Event + "/" + e.Listener
}

// matchesListener accepts "event/label" or a bare label.
func matchesListener(e trace.Entry, want string) bool {
	if strings.Contains(want, "/") {
		return listenerRef(e) == want
	}
	return e.Listener == want
}

// raiseIndex checks that i names a raise of result.
func raiseIndex(result *Result, assertion Assertion, i int) error {
	if i < 0 || i >= len(result.Raises) {
		return fmt.Errorf("%s: raise %d did not run", assertion.Type, i)
	}
	return nil
}

// entriesFor returns the trace entries of one kind, restricted to the
// assertion's raise if it names one.
func entriesFor(result *Result, assertion Assertion, kind trace.Kind) ([]trace.Entry, error) {
	raiseID := ""
	if assertion.Raise != nil {
		if err := raiseIndex(result, assertion, *assertion.Raise); err != nil {
			return nil, err
		}
		raiseID = result.Raises[*assertion.Raise].RaiseID
	}

	var out []trace.Entry
	for _, e := range result.Trace {
		if e.Kind != kind {
			continue
		}
		if assertion.Raise != nil && e.RaiseID != raiseID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// assertDispatchOrder checks that listeners were dispatched in the given
// order. Other dispatches may come in between.
func assertDispatchOrder(result *Result, assertion Assertion) error {
	dispatches, err := entriesFor(result, assertion, trace.KindDispatch)
	if err != nil {
		return err
	}

	next := 0
	for _, e := range dispatches {
		if next < len(assertion.Listeners) && matchesListener(e, assertion.Listeners[next]) {
			next++
		}
	}
	if next == len(assertion.Listeners) {
		return nil
	}

	actual := make([]string, len(dispatches))
	for i, e := range dispatches {
		actual[i] = listenerRef(e)
	}
	return &AssertionError{
		Type:     AssertDispatchOrder,
		Expected: fmt.Sprintf("dispatches in order: %v", assertion.Listeners),
		Actual:   fmt.Sprintf("%v (first unmatched: %s)", actual, assertion.Listeners[next]),
		Trace:    result.Trace,
	}
}

// assertListenerCount checks how often a listener was dispatched or
// skipped.
func assertListenerCount(result *Result, assertion Assertion, kind trace.Kind, want int) error {
	entries, err := entriesFor(result, assertion, kind)
	if err != nil {
		return err
	}
	count := 0
	for _, e := range entries {
		if matchesListener(e, assertion.Listener) {
			count++
		}
	}
	if count == want {
		return nil
	}
	return &AssertionError{
		Type:     assertion.Type,
		Expected: fmt.Sprintf("%s %s %d time(s)", assertion.Listener, kind, want),
		Actual:   fmt.Sprintf("%d time(s)", count),
		Trace:    result.Trace,
	}
}

// outcomeFor returns the raise an args assertion applies to.
func outcomeFor(result *Result, assertion Assertion) (RaiseOutcome, error) {
	i := 0
	if assertion.Raise != nil {
		i = *assertion.Raise
	}
	if err := raiseIndex(result, assertion, i); err != nil {
		return RaiseOutcome{}, err
	}
	return result.Raises[i], nil
}

func memberName(assertion Assertion) string {
	if assertion.Event == "" {
		return "root"
	}
	return assertion.Event
}

// assertArgs checks the cancellation flag, lifecycle state or a field of
// one group member.
func assertArgs(result *Result, assertion Assertion) error {
	outcome, err := outcomeFor(result, assertion)
	if err != nil {
		return err
	}
	p := outcome.member(assertion.Event)
	if p == nil {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("event %s in raise group of %s", assertion.Event, outcome.Event),
			Actual:   "not raised",
			Trace:    result.Trace,
		}
	}

	var expected, actual string
	switch assertion.Type {
	case AssertCancelled:
		expected = fmt.Sprintf("%s cancelled=%t", memberName(assertion), *assertion.Expect)
		actual = fmt.Sprintf("cancelled=%t", p.IsCancelled())
		if p.IsCancelled() == *assertion.Expect {
			return nil
		}
	case AssertState:
		expected = fmt.Sprintf("%s state %s", memberName(assertion), assertion.State)
		actual = p.State().String()
		if actual == assertion.State {
			return nil
		}
	case AssertField:
		v, ok := p.Field(assertion.Field)
		expected = fmt.Sprintf("%s field %s=%q", memberName(assertion), assertion.Field, assertion.Value)
		actual = fmt.Sprintf("%q", v)
		if !ok {
			actual = "unset"
		}
		if ok && v == assertion.Value {
			return nil
		}
	}

	return &AssertionError{
		Type:     assertion.Type,
		Expected: expected,
		Actual:   actual,
		Trace:    result.Trace,
	}
}

// assertComplete checks the journaled state of a raise.
func assertComplete(actx *AssertionContext, result *Result, assertion Assertion) error {
	outcome, err := outcomeFor(result, assertion)
	if err != nil {
		return err
	}
	state, err := actx.Journal.GetRaiseState(actx.Ctx, outcome.RaiseID)
	if err != nil {
		return fmt.Errorf("%s: %w", assertion.Type, err)
	}
	if state.IsComplete() == *assertion.Expect {
		return nil
	}
	return &AssertionError{
		Type:     AssertComplete,
		Expected: fmt.Sprintf("journaled raise %q complete=%t", outcome.RaiseID, *assertion.Expect),
		Actual:   fmt.Sprintf("complete=%t (pre %t/%t, post %t/%t)", state.IsComplete(), state.PreStarted, state.PreComplete, state.PostStarted, state.PostComplete),
		Trace:    result.Trace,
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides journal access for complete assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertDispatchOrder:
			err = assertDispatchOrder(result, assertion)
		case AssertDispatchCount:
			err = assertListenerCount(result, assertion, trace.KindDispatch, assertion.expectedCount(0))
		case AssertSkipped:
			err = assertListenerCount(result, assertion, trace.KindSkip, assertion.expectedCount(1))
		case AssertCancelled, AssertState, AssertField:
			err = assertArgs(result, assertion)
		case AssertComplete:
			if actx == nil || actx.Journal == nil {
				err = fmt.Errorf("assertion[%d]: complete requires a journal", i)
			} else {
				err = assertComplete(actx, result, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}
