// Package event implements prioritized, cascading in-process events.
//
// An Event holds listeners sorted by Priority and an ordered list of
// dependent events. Raising an event raises its dependents with it: each
// dependent receives args produced by a converter from its parent's args,
// and the listeners of the whole group are dispatched as one stream in
// priority order.
//
// # Phases
//
// Raise runs the pre-event phase: every listener below PriorityPost, lowest
// priority first. Right before the first listener at PriorityMonitor or
// above, every args in the group becomes immutable, so monitor listeners
// observe the final cancellation outcome. RaisePost runs the post-event
// phase for PriorityPost listeners once the pre-event phase has finished.
// RaiseAll runs both.
//
// # Args lifecycle
//
// Args move strictly forward through five states:
//
//	Unused -> UsingPreEvent -> UsedPreEvent -> UsingPostEvent -> UsedPostEvent
//
// Args can therefore be raised once. Raising used args returns
// ErrArgsAlreadyUsed.
//
// # Cancellation
//
// A dependent registered with SharedCancellation (the default) shares one
// cancellation flag with its parent: cancelling either cancels both. A
// dependent registered with UnsharedCancellation has its own flag.
//
// # Termination
//
// A dependent whose event is already on the path from the root is a cycle:
// it is skipped and reported as a CYCLE_DETECTED RuntimeError in the trace.
// Groups deeper than the configured maximum depth, or larger than the
// member quota, are rejected before any listener runs.
//
// # Concurrency
//
// Events and args are safe for concurrent use. A raise works on a snapshot
// of listeners and dependents taken when the phase starts; registration
// changes made during a raise apply to later raises.
package event
