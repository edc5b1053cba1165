package event

import (
	"errors"
	"fmt"
)

var (
	// ErrArgsAlreadyUsed is returned when args that already went through a
	// raise are raised again.
	ErrArgsAlreadyUsed = errors.New("event args already used")

	// ErrArgsImmutable is returned by SetCancelled once args are immutable.
	ErrArgsImmutable = errors.New("event args are immutable")

	// ErrInvalidState is returned for out-of-order lifecycle transitions,
	// e.g. RaisePost before Raise.
	ErrInvalidState = errors.New("invalid event args state")

	// ErrNotGroupRoot is returned by RaisePost for args that were raised as
	// a dependent of another event.
	ErrNotGroupRoot = errors.New("event args are not the root of a raise group")

	// ErrNilArgs is returned when nil args are raised.
	ErrNilArgs = errors.New("nil event args")
)

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeCycleDetected indicates a dependent event already on the
	// current dependency path.
	ErrCodeCycleDetected RuntimeErrorCode = "CYCLE_DETECTED"

	// ErrCodeDepthExceeded indicates a dependency chain deeper than the
	// configured maximum.
	ErrCodeDepthExceeded RuntimeErrorCode = "DEPTH_EXCEEDED"

	// ErrCodeQuotaExceeded indicates a raise group with more members than
	// the configured quota.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeConverterFailed indicates a dependent converter that panicked
	// or returned nil.
	ErrCodeConverterFailed RuntimeErrorCode = "CONVERTER_FAILED"

	// ErrCodeArgsRejected indicates a converter returned args that were
	// already used.
	ErrCodeArgsRejected RuntimeErrorCode = "ARGS_REJECTED"
)

// RuntimeError represents a problem detected while building or running a
// raise group.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// RaiseID identifies the affected raise, when one was assigned.
	RaiseID string

	// Event is the event the error is about.
	Event string

	// Parent is the parent event for dependent errors.
	Parent string

	// Details contains additional context.
	Details map[string]string
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	switch {
	case e.Parent != "" && e.Event != "":
		return fmt.Sprintf("%s: %s (event=%s, parent=%s)", e.Code, e.Message, e.Event, e.Parent)
	case e.Event != "":
		return fmt.Sprintf("%s: %s (event=%s)", e.Code, e.Message, e.Event)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsCycleError reports whether err is a cycle detection error.
func IsCycleError(err error) bool {
	return hasCode(err, ErrCodeCycleDetected)
}

// IsDepthError reports whether err is a depth limit error.
func IsDepthError(err error) bool {
	return hasCode(err, ErrCodeDepthExceeded)
}

// IsQuotaError reports whether err is a group size quota error.
func IsQuotaError(err error) bool {
	return hasCode(err, ErrCodeQuotaExceeded)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// NewCycleError creates a RuntimeError for a dependent that would loop.
func NewCycleError(event, parent string, path []string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeCycleDetected,
		Message: "dependent event is already on the dependency path",
		Event:   event,
		Parent:  parent,
		Details: map[string]string{"path": fmt.Sprint(path)},
	}
}

// NewDepthError creates a RuntimeError for an over-deep dependency chain.
func NewDepthError(event string, depth, maxDepth int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeDepthExceeded,
		Message: fmt.Sprintf("dependency depth exceeded (%d > %d)", depth, maxDepth),
		Event:   event,
		Details: map[string]string{
			"depth":     fmt.Sprintf("%d", depth),
			"max_depth": fmt.Sprintf("%d", maxDepth),
		},
	}
}

// NewQuotaError creates a RuntimeError for an oversized raise group.
func NewQuotaError(event string, members, maxMembers int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQuotaExceeded,
		Message: fmt.Sprintf("raise group exceeded max members (%d > %d)", members, maxMembers),
		Event:   event,
		Details: map[string]string{
			"members":     fmt.Sprintf("%d", members),
			"max_members": fmt.Sprintf("%d", maxMembers),
		},
	}
}

// ListenerPanicError wraps a value recovered from a panicking listener.
type ListenerPanicError struct {
	Event    string
	Listener string
	Value    any
}

func (e *ListenerPanicError) Error() string {
	return fmt.Sprintf("listener %s on %s panicked: %v", e.Listener, e.Event, e.Value)
}

// Unwrap exposes the panic value when it was an error.
func (e *ListenerPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
