package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/trace"
)

// WriteEntries appends trace entries in a single transaction and returns
// how many were new.
//
// Entries are keyed by trace.EntryID, so rewriting an entry is silently
// ignored. Dependent entries also produce a provenance edge. Entries
// without a raise ID are rejected and nothing is written.
func (j *Journal) WriteEntries(ctx context.Context, entries []trace.Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write entries: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	inserted := 0
	for _, e := range entries {
		ok, err := writeEntry(ctx, tx, e)
		if err != nil {
			return 0, fmt.Errorf("write entries: seq %d: %w", e.Seq, err)
		}
		if ok {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write entries: commit: %w", err)
	}
	return inserted, nil
}

var errMissingRaiseID = errors.New("entry has no raise id")

func writeEntry(ctx context.Context, tx *sql.Tx, e trace.Entry) (bool, error) {
	if e.RaiseID == "" {
		return false, errMissingRaiseID
	}

	id, err := trace.EntryID(e)
	if err != nil {
		return false, err
	}
	canonical, err := trace.MarshalCanonical(e)
	if err != nil {
		return false, err
	}

	// Entries of a raise arrive in seq order, so the first one seen names
	// the root event.
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO raises (id, root_event, first_seq)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, e.RaiseID, e.Event, e.Seq); err != nil {
		return false, fmt.Errorf("insert raise: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO entries
		(id, raise_id, seq, kind, phase, event, parent, listener, priority, cancelled, shared, error, canonical)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		e.RaiseID,
		e.Seq,
		string(e.Kind),
		string(e.Phase),
		e.Event,
		e.Parent,
		e.Listener,
		e.Priority,
		boolToInt(e.Cancelled),
		boolToInt(e.Shared),
		e.Error,
		string(canonical),
	)
	if err != nil {
		return false, fmt.Errorf("insert entry: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	if e.Kind == trace.KindDependent {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO edges (raise_id, seq, parent, child, shared)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(raise_id, seq) DO NOTHING
		`, e.RaiseID, e.Seq, e.Parent, e.Event, boolToInt(e.Shared)); err != nil {
			return false, fmt.Errorf("insert edge: %w", err)
		}
	}

	return rows > 0, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
