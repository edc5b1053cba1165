package journal

import (
	"context"
	"fmt"

	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/trace"
)

// RaiseState is the reconstructed outcome of one raise group.
type RaiseState struct {
	RaiseID      string
	RootEvent    string
	Entries      []trace.Entry
	LastSeq      int64
	PreStarted   bool
	PreComplete  bool // a pre phase end entry exists
	PostStarted  bool
	PostComplete bool
	Cancelled    bool // cancellation of the root at the last phase boundary
	Interrupted  bool // a phase was cut short by context cancellation
}

// IsComplete reports whether every phase that started also finished.
func (s RaiseState) IsComplete() bool {
	return s.PreStarted && s.PreComplete && s.PostStarted == s.PostComplete
}

// GetRaiseState rebuilds the state of a raise from its entries.
func (j *Journal) GetRaiseState(ctx context.Context, raiseID string) (RaiseState, error) {
	state := RaiseState{RaiseID: raiseID}

	entries, err := j.ReadRaise(ctx, raiseID)
	if err != nil {
		return state, fmt.Errorf("get raise state: %w", err)
	}
	state.Entries = entries

	for _, e := range entries {
		if e.Seq > state.LastSeq {
			state.LastSeq = e.Seq
		}
		switch e.Kind {
		case trace.KindRaise:
			if e.Phase == trace.PhasePre {
				state.PreStarted = true
				state.RootEvent = e.Event
			} else {
				state.PostStarted = true
			}
		case trace.KindPhase:
			if e.Phase == trace.PhasePre {
				state.PreComplete = true
			} else {
				state.PostComplete = true
			}
			state.Cancelled = e.Cancelled
		case trace.KindError:
			// Rejected dependents carry a parent; interruptions do not.
			if e.Parent == "" {
				state.Interrupted = true
			}
		}
	}

	return state, nil
}

// FindIncompleteRaises returns raises whose journal shows a phase that
// started but never finished. That happens when the process stopped
// mid-raise or a Recorder was not flushed to the end.
func (j *Journal) FindIncompleteRaises(ctx context.Context) ([]RaiseState, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT DISTINCT r.id FROM raises r
		WHERE (
			SELECT COUNT(*) FROM entries e
			WHERE e.raise_id = r.id AND e.kind = 'raise'
		) > (
			SELECT COUNT(*) FROM entries e
			WHERE e.raise_id = r.id AND e.kind = 'phase'
		)
		ORDER BY r.first_seq ASC, r.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("find incomplete raises: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("find incomplete raises: scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("find incomplete raises: iterate: %w", err)
	}
	rows.Close()

	out := []RaiseState{}
	for _, id := range ids {
		state, err := j.GetRaiseState(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, state)
	}
	return out, nil
}

// Mismatch is a journaled entry whose stored ID or canonical form no
// longer matches its columns.
type Mismatch struct {
	ID     string `json:"id"`
	Seq    int64  `json:"seq"`
	Reason string `json:"reason"`
}

// Verify recomputes the content ID and canonical JSON of every entry of a
// raise (or of all raises when raiseID is empty) and reports differences.
func (j *Journal) Verify(ctx context.Context, raiseID string) ([]Mismatch, error) {
	var (
		stored []storedEntry
		err    error
	)
	if raiseID == "" {
		stored, err = j.readEntries(ctx, "")
	} else {
		stored, err = j.readEntries(ctx, `WHERE raise_id = ?`, raiseID)
	}
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	out := []Mismatch{}
	for _, se := range stored {
		id, err := trace.EntryID(se.entry)
		if err != nil {
			return nil, fmt.Errorf("verify: seq %d: %w", se.entry.Seq, err)
		}
		canonical, err := trace.MarshalCanonical(se.entry)
		if err != nil {
			return nil, fmt.Errorf("verify: seq %d: %w", se.entry.Seq, err)
		}
		switch {
		case id != se.id:
			out = append(out, Mismatch{ID: se.id, Seq: se.entry.Seq, Reason: "content id does not match columns"})
		case string(canonical) != se.canonical:
			out = append(out, Mismatch{ID: se.id, Seq: se.entry.Seq, Reason: "canonical json does not match columns"})
		}
	}
	return out, nil
}
