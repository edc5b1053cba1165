// Package journal provides SQLite-backed durable storage for raise traces.
//
// The journal is append-only and holds:
//   - Raises: one row per raise group, keyed by raise ID
//   - Entries: trace entries, keyed by their content-addressed ID
//   - Edges: parent to dependent links taken from dependent entries
//
// # Ordering
//
// All reads order by seq ASC, id ASC COLLATE BINARY. Seq comes from the
// event package's logical clock, so results are identical across replays.
//
// # Idempotency
//
// Entry IDs are computed with trace.EntryID. Writing the same entry twice is
// a no-op, which lets a Recorder flush be retried safely.
package journal
