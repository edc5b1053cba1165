package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/compiler"
)

// Scenario defines a raise scenario.
// It raises events from a definition in order and asserts on the resulting
// trace and args.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description,omitempty"`

	// Definition is the path of a YAML or CUE event definition, relative to
	// the scenario file. Mutually exclusive with Events.
	Definition string `yaml:"definition,omitempty"`

	// Events is an inline definition.
	Events []compiler.EventDef `yaml:"events,omitempty"`

	// RaiseID is the prefix for deterministic raise IDs. Raise n gets
	// "<raise_id>-n". Defaults to "test-raise".
	RaiseID string `yaml:"raise_id,omitempty"`

	// Raises run in order, each with fresh args.
	Raises []RaiseStep `yaml:"raises"`

	// Assertions validate the trace and the final args.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// RaiseStep raises one event.
type RaiseStep struct {
	// Event is the name of the event to raise.
	Event string `yaml:"event"`

	// Fields seeds the root payload.
	Fields map[string]string `yaml:"fields,omitempty"`

	// Cancelled starts the raise with the cancellation flag set.
	Cancelled bool `yaml:"cancelled,omitempty"`

	// Post runs the post-event phase after the pre-event phase.
	// Defaults to true.
	Post *bool `yaml:"post,omitempty"`

	// ExpectError is a substring the raise error must contain. Empty means
	// the raise must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// expectedCount returns Count, or def when it is omitted.
func (a Assertion) expectedCount(def int) int {
	if a.Count == nil {
		return def
	}
	return *a.Count
}

func (r RaiseStep) runPost() bool {
	return r.Post == nil || *r.Post
}

// Assertion validates the outcome of a scenario.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Raise restricts the assertion to one raise (0-based). Trace
	// assertions default to all raises; args assertions to raise 0.
	Raise *int `yaml:"raise,omitempty"`

	// Listeners is the expected dispatch order (dispatch_order).
	// Each entry is "event/label" or just "label".
	Listeners []string `yaml:"listeners,omitempty"`

	// Listener selects dispatch or skip entries (dispatch_count, skipped).
	Listener string `yaml:"listener,omitempty"`

	// Count is the expected number of matching entries. Omitted, it means
	// 0 for dispatch_count and 1 for skipped.
	Count *int `yaml:"count,omitempty"`

	// Event selects the args of a group member by event name. Defaults to
	// the root.
	Event string `yaml:"event,omitempty"`

	// Expect is the expected flag (cancelled, complete).
	Expect *bool `yaml:"expect,omitempty"`

	// State is the expected lifecycle state name (state).
	State string `yaml:"state,omitempty"`

	// Field and Value check a payload field (field).
	Field string `yaml:"field,omitempty"`
	Value string `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertDispatchOrder = "dispatch_order"
	AssertDispatchCount = "dispatch_count"
	AssertSkipped       = "skipped"
	AssertCancelled     = "cancelled"
	AssertState         = "state"
	AssertField         = "field"
	AssertComplete      = "complete"
)

var knownAssertions = map[string]bool{
	AssertDispatchOrder: true,
	AssertDispatchCount: true,
	AssertSkipped:       true,
	AssertCancelled:     true,
	AssertState:         true,
	AssertField:         true,
	AssertComplete:      true,
}

// LoadScenario reads and parses a scenario YAML file.
// A relative definition path is resolved against the scenario's directory.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields, or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath is LoadScenario with an explicit base path for
// the definition file.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Definition != "" && !filepath.IsAbs(scenario.Definition) && basePath != "" {
		scenario.Definition = filepath.Join(basePath, scenario.Definition)
	}
	return scenario, nil
}

// ParseScenario decodes and validates a scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	switch {
	case s.Definition == "" && len(s.Events) == 0:
		return fmt.Errorf("either definition or events is required")
	case s.Definition != "" && len(s.Events) > 0:
		return fmt.Errorf("definition and events are mutually exclusive")
	}

	if len(s.Raises) == 0 {
		return fmt.Errorf("raises list is required and must be non-empty")
	}
	for i, r := range s.Raises {
		if r.Event == "" {
			return fmt.Errorf("raises[%d]: event is required", i)
		}
	}

	for i, a := range s.Assertions {
		if !knownAssertions[a.Type] {
			return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
		}
		if a.Raise != nil && (*a.Raise < 0 || *a.Raise >= len(s.Raises)) {
			return fmt.Errorf("assertions[%d]: raise %d out of range", i, *a.Raise)
		}
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}

	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertDispatchOrder:
		if len(a.Listeners) == 0 {
			return fmt.Errorf("%s requires listeners", a.Type)
		}
	case AssertDispatchCount, AssertSkipped:
		if a.Listener == "" {
			return fmt.Errorf("%s requires listener", a.Type)
		}
	case AssertCancelled, AssertComplete:
		if a.Expect == nil {
			return fmt.Errorf("%s requires expect", a.Type)
		}
	case AssertState:
		if a.State == "" {
			return fmt.Errorf("%s requires state", a.Type)
		}
	case AssertField:
		if a.Field == "" {
			return fmt.Errorf("%s requires field", a.Type)
		}
	}
	return nil
}

// definition loads or returns the scenario's event definition.
func (s *Scenario) definition() (*compiler.Definition, error) {
	if s.Definition != "" {
		return compiler.LoadFile(s.Definition)
	}
	return &compiler.Definition{Events: s.Events}, nil
}
