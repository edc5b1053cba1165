package compiler

import (
	"fmt"
	"strings"

	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/event"
)

// Validation error codes (E200-E299)
const (
	ErrDefinitionParse      = "E200" // definition file could not be parsed
	ErrEventNameEmpty       = "E201" // event name is required
	ErrDuplicateEvent       = "E202" // event names must be unique
	ErrUnknownDependent     = "E203" // dependent refers to an undefined event
	ErrInvalidPriority      = "E204" // priority is not a level name or integer
	ErrUnknownAction        = "E205" // listener action is not supported
	ErrInvalidCancellation  = "E206" // cancellation must be shared or unshared
	ErrMissingField         = "E207" // set action without a field
	ErrDuplicateListener    = "E208" // listener labels must be unique per event
	ErrInvalidLimit         = "E209" // max_depth / max_members must not be negative
	ErrDependentFieldsEmpty = "E210" // copy/set entries need a field name
)

// ValidationError represents a definition validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a definition and returns all errors found (does not
// fail fast).
func Validate(def *Definition) []ValidationError {
	var errs []ValidationError
	if def == nil {
		return errs
	}

	names := make(map[string]bool)
	for _, ev := range def.Events {
		names[ev.Name] = true
	}

	seen := make(map[string]bool)
	for i, ev := range def.Events {
		path := fmt.Sprintf("events[%d]", i)

		// E201: name is required
		if strings.TrimSpace(ev.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: "event name is required",
				Code:    ErrEventNameEmpty,
			})
		} else if seen[ev.Name] {
			// E202: duplicate event
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: fmt.Sprintf("duplicate event name: %q", ev.Name),
				Code:    ErrDuplicateEvent,
			})
		}
		seen[ev.Name] = true

		// E209: limits
		if ev.MaxDepth < 0 || ev.MaxMembers < 0 {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: "max_depth and max_members must not be negative",
				Code:    ErrInvalidLimit,
			})
		}

		errs = append(errs, validateListeners(path, ev.Listeners)...)
		errs = append(errs, validateDependents(path, ev.Dependents, names)...)
	}

	return errs
}

func validateListeners(path string, listeners []ListenerDef) []ValidationError {
	var errs []ValidationError
	labels := make(map[string]bool)

	for j, l := range listeners {
		lpath := fmt.Sprintf("%s.listeners[%d]", path, j)

		// E208: duplicate label
		if l.Label != "" {
			if labels[l.Label] {
				errs = append(errs, ValidationError{
					Field:   lpath + ".label",
					Message: fmt.Sprintf("duplicate listener label: %q", l.Label),
					Code:    ErrDuplicateListener,
				})
			}
			labels[l.Label] = true
		}

		// E204: priority
		if _, err := event.ParsePriority(l.Priority); err != nil {
			errs = append(errs, ValidationError{
				Field:   lpath + ".priority",
				Message: err.Error(),
				Code:    ErrInvalidPriority,
			})
		}

		// E205: action
		action := actionOf(l)
		if !knownActions[action] {
			errs = append(errs, ValidationError{
				Field:   lpath + ".action",
				Message: fmt.Sprintf("unknown action %q", l.Action),
				Code:    ErrUnknownAction,
			})
		}

		// E207: set requires a field
		if action == ActionSet && strings.TrimSpace(l.Field) == "" {
			errs = append(errs, ValidationError{
				Field:   lpath + ".field",
				Message: "set action requires a field",
				Code:    ErrMissingField,
			})
		}
	}
	return errs
}

func validateDependents(path string, deps []DependentDef, names map[string]bool) []ValidationError {
	var errs []ValidationError

	for j, d := range deps {
		dpath := fmt.Sprintf("%s.dependents[%d]", path, j)

		// E203: target must exist
		if !names[d.Event] {
			errs = append(errs, ValidationError{
				Field:   dpath + ".event",
				Message: fmt.Sprintf("undefined dependent event %q", d.Event),
				Code:    ErrUnknownDependent,
			})
		}

		// E206: cancellation mode
		if _, err := parseCancellation(d.Cancellation); err != nil {
			errs = append(errs, ValidationError{
				Field:   dpath + ".cancellation",
				Message: err.Error(),
				Code:    ErrInvalidCancellation,
			})
		}

		// E210: field names
		for k, f := range d.Copy {
			if strings.TrimSpace(f) == "" {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.copy[%d]", dpath, k),
					Message: "field name is required",
					Code:    ErrDependentFieldsEmpty,
				})
			}
		}
		for f := range d.Set {
			if strings.TrimSpace(f) == "" {
				errs = append(errs, ValidationError{
					Field:   dpath + ".set",
					Message: "field name is required",
					Code:    ErrDependentFieldsEmpty,
				})
			}
		}
	}
	return errs
}

func actionOf(l ListenerDef) string {
	if l.Action == "" {
		return ActionRecord
	}
	return strings.ToLower(l.Action)
}

func parseCancellation(s string) (event.Cancellation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "shared":
		return event.SharedCancellation, nil
	case "unshared":
		return event.UnsharedCancellation, nil
	default:
		return 0, fmt.Errorf("invalid cancellation %q, must be \"shared\" or \"unshared\"", s)
	}
}
