package harness

import (
	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/compiler"
	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/trace"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every raise behaved as expected and every assertion
	// held.
	Pass bool `json:"pass"`

	// Trace contains all trace entries of all raises in seq order.
	Trace []trace.Entry `json:"trace"`

	// Raises has one outcome per raise step.
	Raises []RaiseOutcome `json:"raises"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Warnings contains static analysis findings, such as dependent cycles.
	Warnings []string `json:"warnings,omitempty"`
}

// RaiseOutcome describes the root args of one raise after it finished.
type RaiseOutcome struct {
	Event     string            `json:"event"`
	RaiseID   string            `json:"raise_id,omitempty"`
	State     string            `json:"state"`
	Cancelled bool              `json:"cancelled"`
	Fields    map[string]string `json:"fields,omitempty"`
	Error     string            `json:"error,omitempty"`

	// members holds the root payload followed by its dependents, depth
	// first.
	members []*compiler.Payload
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []trace.Entry{},
		Raises: []RaiseOutcome{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// member returns the payload raised for event, or the root when event is
// empty.
func (o RaiseOutcome) member(event string) *compiler.Payload {
	for _, p := range o.members {
		if event == "" || p.EventName() == event {
			return p
		}
	}
	return nil
}
