// Package harness runs declarative raise scenarios against event
// definitions.
//
// A scenario names a definition (YAML or CUE, see package compiler), a list
// of raises, and assertions over the resulting trace and args.
//
// # Scenario Format
//
//	name: armor_blocks_damage
//	description: "Armor cancels damage before the logger sees it"
//	definition: ../combat.yaml
//	raise_id: combat
//	raises:
//	  - event: damage
//	    fields: { amount: "12" }
//	assertions:
//	  - type: dispatch_order
//	    listeners: [damage/armor, damage/logger]
//	  - type: cancelled
//	    expect: true
//	  - type: field
//	    event: log
//	    field: amount
//	    value: "12"
//
// # Assertion Types
//
//   - dispatch_order: listeners were dispatched in this relative order
//   - dispatch_count: a listener was dispatched exactly count times
//   - skipped: a listener was skipped count times (default 1)
//   - cancelled: the cancellation flag of a group member
//   - state: the lifecycle state of a group member
//   - field: a payload field of a group member
//   - complete: the journaled raise finished both phases
//
// # Deterministic Testing
//
// Every run uses a fresh logical clock and raise IDs of the form
// "<raise_id>-n", so traces are identical across runs and can be compared
// with golden files (see RunWithGolden). The trace is also written to a
// journal, by default an in-memory SQLite database.
package harness
