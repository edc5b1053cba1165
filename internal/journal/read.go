package journal

import (
	"context"
	"fmt"

	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/trace"
)

// RaiseSummary describes one journaled raise group.
type RaiseSummary struct {
	ID         string `json:"id"`
	RootEvent  string `json:"root_event"`
	Entries    int    `json:"entries"`
	Dispatches int    `json:"dispatches"`
	Errors     int    `json:"errors"`
	FirstSeq   int64  `json:"first_seq"`
	LastSeq    int64  `json:"last_seq"`
}

// Edge is a parent to dependent link recorded during a raise.
type Edge struct {
	Seq    int64  `json:"seq"`
	Parent string `json:"parent"`
	Child  string `json:"child"`
	Shared bool   `json:"shared"`
}

const entryColumns = `id, raise_id, seq, kind, phase, event, parent, listener, priority, cancelled, shared, error, canonical`

// storedEntry is a row of the entries table.
type storedEntry struct {
	id        string
	canonical string
	entry     trace.Entry
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (storedEntry, error) {
	var (
		se                storedEntry
		kind, phase       string
		cancelled, shared int
	)
	err := s.Scan(
		&se.id,
		&se.entry.RaiseID,
		&se.entry.Seq,
		&kind,
		&phase,
		&se.entry.Event,
		&se.entry.Parent,
		&se.entry.Listener,
		&se.entry.Priority,
		&cancelled,
		&shared,
		&se.entry.Error,
		&se.canonical,
	)
	if err != nil {
		return storedEntry{}, fmt.Errorf("scan entry: %w", err)
	}
	se.entry.Kind = trace.Kind(kind)
	se.entry.Phase = trace.Phase(phase)
	se.entry.Cancelled = cancelled != 0
	se.entry.Shared = shared != 0
	return se, nil
}

// ReadRaise returns the entries of one raise group in seq order.
// Returns an empty slice (not nil) for unknown raise IDs.
func (j *Journal) ReadRaise(ctx context.Context, raiseID string) ([]trace.Entry, error) {
	stored, err := j.readEntries(ctx, `WHERE raise_id = ?`, raiseID)
	if err != nil {
		return nil, fmt.Errorf("read raise %s: %w", raiseID, err)
	}
	return entriesOf(stored), nil
}

// ReadAll returns every journaled entry in seq order.
func (j *Journal) ReadAll(ctx context.Context) ([]trace.Entry, error) {
	stored, err := j.readEntries(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("read all: %w", err)
	}
	return entriesOf(stored), nil
}

func (j *Journal) readEntries(ctx context.Context, where string, args ...any) ([]storedEntry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM entries
		`+where+`
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []storedEntry
	for rows.Next() {
		se, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, se)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

func entriesOf(stored []storedEntry) []trace.Entry {
	out := make([]trace.Entry, len(stored))
	for i, se := range stored {
		out[i] = se.entry
	}
	return out
}

// ListRaises summarizes every journaled raise, oldest first.
func (j *Journal) ListRaises(ctx context.Context) ([]RaiseSummary, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT r.id, r.root_event,
		       COUNT(e.id),
		       COALESCE(SUM(e.kind = 'dispatch'), 0),
		       COALESCE(SUM(e.kind = 'error'), 0),
		       COALESCE(MIN(e.seq), r.first_seq),
		       COALESCE(MAX(e.seq), r.first_seq)
		FROM raises r
		LEFT JOIN entries e ON e.raise_id = r.id
		GROUP BY r.id, r.root_event, r.first_seq
		ORDER BY r.first_seq ASC, r.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list raises: %w", err)
	}
	defer rows.Close()

	out := []RaiseSummary{}
	for rows.Next() {
		var s RaiseSummary
		if err := rows.Scan(&s.ID, &s.RootEvent, &s.Entries, &s.Dispatches, &s.Errors, &s.FirstSeq, &s.LastSeq); err != nil {
			return nil, fmt.Errorf("scan raise: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raises: %w", err)
	}
	return out, nil
}

// Edges returns the dependent links of one raise in seq order.
func (j *Journal) Edges(ctx context.Context, raiseID string) ([]Edge, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, parent, child, shared
		FROM edges
		WHERE raise_id = ?
		ORDER BY seq ASC
	`, raiseID)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	out := []Edge{}
	for rows.Next() {
		var (
			e      Edge
			shared int
		)
		if err := rows.Scan(&e.Seq, &e.Parent, &e.Child, &shared); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.Shared = shared != 0
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edges: %w", err)
	}
	return out, nil
}

// MaxSeq returns the highest journaled seq, or 0 for an empty journal.
// Pass it to event.NewClockAt to continue numbering after a restart.
func (j *Journal) MaxSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := j.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM entries`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return seq, nil
}
