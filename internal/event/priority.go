package event

import (
	"fmt"
	"strconv"
	"strings"
)

// Priority orders listener dispatch. Lower values run first.
//
// The named levels leave gaps so callers can slot custom priorities in
// between, e.g. PriorityNormal+5.
type Priority int

const (
	PriorityLowest   Priority = 0
	PriorityVeryLow  Priority = 10
	PriorityLow      Priority = 20
	PriorityNormal   Priority = 30
	PriorityHigh     Priority = 40
	PriorityVeryHigh Priority = 50
	PriorityHighest  Priority = 60

	// PriorityMonitor and above run after the group's args became immutable.
	PriorityMonitor Priority = 70

	// PriorityPost and above run only in the post-event phase.
	PriorityPost Priority = 80
)

var priorityNames = map[Priority]string{
	PriorityLowest:   "lowest",
	PriorityVeryLow:  "verylow",
	PriorityLow:      "low",
	PriorityNormal:   "normal",
	PriorityHigh:     "high",
	PriorityVeryHigh: "veryhigh",
	PriorityHighest:  "highest",
	PriorityMonitor:  "monitor",
	PriorityPost:     "post",
}

// String returns the level name, or the number for custom priorities.
func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return strconv.Itoa(int(p))
}

// IsMonitor reports whether listeners at p see immutable args.
func (p Priority) IsMonitor() bool { return p >= PriorityMonitor }

// IsPost reports whether listeners at p run in the post-event phase.
func (p Priority) IsPost() bool { return p >= PriorityPost }

// ParsePriority accepts a level name (case-insensitive; "very_low",
// "very-low" and "verylow" are equivalent) or an integer.
func ParsePriority(s string) (Priority, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return PriorityNormal, nil
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		return Priority(n), nil
	}
	key := strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(trimmed))
	for p, name := range priorityNames {
		if name == key {
			return p, nil
		}
	}
	return 0, fmt.Errorf("invalid priority %q", s)
}
