// Package trace defines the records emitted while events are raised.
//
// Every raise produces an ordered list of Entry values: one "raise" entry
// for the root event, one "dependent" entry per dependent event pulled into
// the raise group, a "dispatch" entry per listener invocation, and "skip",
// "immutable", "phase" and "error" entries for the remaining transitions.
// Entries are stamped with a logical sequence number, never wall-clock time,
// so two runs of the same raise produce byte-identical traces.
//
// Entries have a canonical JSON form (sorted keys, NFC-normalized strings,
// no floats, no null) and a content-addressed ID derived from it. The
// journal uses the ID for idempotent writes and the harness uses the
// canonical form for golden files.
package trace
