package compiler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Listener actions understood by Build.
const (
	ActionRecord   = "record"   // do nothing; the dispatch shows up in the trace
	ActionCancel   = "cancel"   // set the cancellation flag
	ActionUncancel = "uncancel" // clear the cancellation flag
	ActionSet      = "set"      // write Value into payload field Field
	ActionPanic    = "panic"    // panic with Value
)

var knownActions = map[string]bool{
	ActionRecord:   true,
	ActionCancel:   true,
	ActionUncancel: true,
	ActionSet:      true,
	ActionPanic:    true,
}

// Definition is a set of events with their listeners and dependents.
type Definition struct {
	Events []EventDef `yaml:"events" json:"events"`
}

// EventDef describes one event.
type EventDef struct {
	Name       string         `yaml:"name" json:"name"`
	MaxDepth   int            `yaml:"max_depth,omitempty" json:"max_depth,omitempty"`
	MaxMembers int            `yaml:"max_members,omitempty" json:"max_members,omitempty"`
	Listeners  []ListenerDef  `yaml:"listeners,omitempty" json:"listeners,omitempty"`
	Dependents []DependentDef `yaml:"dependents,omitempty" json:"dependents,omitempty"`
}

// ListenerDef describes a scripted listener.
type ListenerDef struct {
	Label           string `yaml:"label" json:"label"`
	Priority        string `yaml:"priority,omitempty" json:"priority,omitempty"` // level name or integer; default normal
	Action          string `yaml:"action,omitempty" json:"action,omitempty"`     // default record
	Field           string `yaml:"field,omitempty" json:"field,omitempty"`
	Value           string `yaml:"value,omitempty" json:"value,omitempty"`
	Key             string `yaml:"key,omitempty" json:"key,omitempty"`
	IgnoreCancelled bool   `yaml:"ignore_cancelled,omitempty" json:"ignore_cancelled,omitempty"`
}

// DependentDef makes another event raise together with the owning event.
type DependentDef struct {
	Event        string            `yaml:"event" json:"event"`
	Cancellation string            `yaml:"cancellation,omitempty" json:"cancellation,omitempty"` // shared (default) or unshared
	Copy         []string          `yaml:"copy,omitempty" json:"copy,omitempty"`                 // payload fields to copy; empty copies all
	Set          map[string]string `yaml:"set,omitempty" json:"set,omitempty"`                   // fields set on the converted payload
}

// Event returns the event named name, or nil.
func (d *Definition) Event(name string) *EventDef {
	for i := range d.Events {
		if d.Events[i].Name == name {
			return &d.Events[i]
		}
	}
	return nil
}

// Names returns the event names in definition order.
func (d *Definition) Names() []string {
	names := make([]string, len(d.Events))
	for i, e := range d.Events {
		names[i] = e.Name
	}
	return names
}

// ParseYAML decodes a definition from YAML. Unknown fields are rejected.
func ParseYAML(data []byte) (*Definition, error) {
	var def Definition
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject typos like "listener:"
	if err := decoder.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return &def, nil
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &def, nil
}

// LoadFile reads a definition from a .yaml, .yml, .json or .cue file.
// A directory is loaded as a CUE package.
func LoadFile(path string) (*Definition, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}
	if info.IsDir() {
		return LoadCUEDir(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return ParseCUE(data, path)
	case ".yaml", ".yml", ".json":
		// JSON is a subset of YAML.
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported definition file type: %s", path)
	}
}
