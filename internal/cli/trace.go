package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/journal"
	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Kind     string // optional - filter the timeline to one entry kind
}

// TraceResult holds the trace of one journaled raise.
type TraceResult struct {
	RaiseID    string             `json:"raise_id"`
	RootEvent  string             `json:"root_event"`
	Timeline   []trace.Entry      `json:"timeline"`
	Edges      []journal.Edge     `json:"edges"`
	Mismatches []journal.Mismatch `json:"mismatches,omitempty"`
	Stats      TraceStats         `json:"stats"`
}

// TraceStats holds summary statistics for a raise.
type TraceStats struct {
	TotalEntries int  `json:"total_entries"`
	Dependents   int  `json:"dependents"`
	Dispatches   int  `json:"dispatches"`
	Skips        int  `json:"skips"`
	Errors       int  `json:"errors"`
	Cancelled    bool `json:"cancelled"`
	IsComplete   bool `json:"is_complete"`
	Interrupted  bool `json:"interrupted"`
}

// RaiseListing is one row of "enki trace" without a raise ID.
type RaiseListing struct {
	journal.RaiseSummary
	Incomplete bool `json:"incomplete"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [raise-id]",
		Short: "Inspect journaled raises",
		Long: `Inspect raises stored in a SQLite journal.

Without a raise ID, lists every journaled raise with its entry counts and
flags raises whose phases never finished.

With a raise ID, prints the timeline of the raise, the parent to dependent
edges of its group, and verifies that no stored entry was altered.

Examples:
  enki trace --db ./enki.db
  enki trace --db ./enki.db combat-1
  enki trace --db ./enki.db combat-1 --kind dispatch --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Database == "" {
				return NewExitError(ExitCommandError, "--db (or ENKI_JOURNAL) is required")
			}
			if len(args) == 0 {
				return runTraceList(opts, cmd)
			}
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.Config.Journal, "path to SQLite journal")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter the timeline to one entry kind")

	return cmd
}

// openJournal opens an existing journal; a missing file is a command
// error rather than a fresh empty journal.
func openJournal(path string) (*journal.Journal, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "journal not found", err)
	}
	j, err := journal.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	return j, nil
}

func runTraceList(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	j, err := openJournal(opts.Database)
	if err != nil {
		return err
	}
	defer j.Close()

	summaries, err := j.ListRaises(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list raises", err)
	}
	incomplete, err := j.FindIncompleteRaises(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find incomplete raises", err)
	}
	open := make(map[string]bool, len(incomplete))
	for _, s := range incomplete {
		open[s.RaiseID] = true
	}

	listing := make([]RaiseListing, len(summaries))
	for i, s := range summaries {
		listing[i] = RaiseListing{RaiseSummary: s, Incomplete: open[s.ID]}
	}

	if formatter.JSON() {
		return formatter.Success(listing)
	}

	w := cmd.OutOrStdout()
	if len(listing) == 0 {
		fmt.Fprintln(w, "No raises journaled.")
		return nil
	}
	head, err := j.MaxSeq(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal head", err)
	}
	fmt.Fprintf(w, "%d raise(s), last seq %d\n", len(listing), head)
	for _, r := range listing {
		status := ""
		if r.Incomplete {
			status = "  (incomplete)"
		}
		fmt.Fprintf(w, "%s  %s  entries=%d dispatches=%d errors=%d seq=%d..%d%s\n",
			r.ID, r.RootEvent, r.Entries, r.Dispatches, r.Errors, r.FirstSeq, r.LastSeq, status)
	}
	return nil
}

func runTrace(opts *TraceOptions, raiseID string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	j, err := openJournal(opts.Database)
	if err != nil {
		return err
	}
	defer j.Close()

	state, err := j.GetRaiseState(ctx, raiseID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read raise", err)
	}
	if len(state.Entries) == 0 {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("no entries for raise %s", raiseID), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("raise not found: %s", raiseID))
	}

	edges, err := j.Edges(ctx, raiseID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read edges", err)
	}
	mismatches, err := j.Verify(ctx, raiseID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to verify raise", err)
	}

	result := TraceResult{
		RaiseID:    raiseID,
		RootEvent:  state.RootEvent,
		Timeline:   filterKind(state.Entries, trace.Kind(opts.Kind)),
		Edges:      edges,
		Mismatches: mismatches,
		Stats:      traceStats(state),
	}
	if result.Edges == nil {
		result.Edges = []journal.Edge{}
	}

	if formatter.JSON() {
		if len(mismatches) > 0 {
			err = formatter.Result(result, ErrCodeVerifyFailed, fmt.Sprintf("%d entry(ies) altered", len(mismatches)))
		} else {
			err = formatter.Success(result)
		}
		if err != nil {
			return err
		}
	} else {
		outputTraceText(cmd.OutOrStdout(), result)
	}

	if len(mismatches) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("raise %s failed verification", raiseID))
	}
	return nil
}

func traceStats(state journal.RaiseState) TraceStats {
	stats := TraceStats{
		TotalEntries: len(state.Entries),
		Cancelled:    state.Cancelled,
		IsComplete:   state.IsComplete(),
		Interrupted:  state.Interrupted,
	}
	for _, e := range state.Entries {
		switch e.Kind {
		case trace.KindDependent:
			stats.Dependents++
		case trace.KindDispatch:
			stats.Dispatches++
		case trace.KindSkip:
			stats.Skips++
		case trace.KindError:
			stats.Errors++
		}
	}
	return stats
}

func filterKind(entries []trace.Entry, kind trace.Kind) []trace.Entry {
	if kind == "" {
		return entries
	}
	out := []trace.Entry{}
	for _, e := range entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func outputTraceText(w io.Writer, result TraceResult) {
	fmt.Fprintf(w, "Trace for raise: %s (%s)\n", result.RaiseID, result.RootEvent)
	fmt.Fprintf(w, "Status: %s\n", completeStatus(result.Stats))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Timeline:")
	printEntries(w, result.Timeline, "")

	if len(result.Edges) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Dependents:")
		for _, e := range result.Edges {
			mode := "unshared"
			if e.Shared {
				mode = "shared"
			}
			fmt.Fprintf(w, "  [%d] %s → %s (%s)\n", e.Seq, e.Parent, e.Child, mode)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Entries: %d, dependents: %d, dispatches: %d, skips: %d, errors: %d\n",
		result.Stats.TotalEntries, result.Stats.Dependents, result.Stats.Dispatches, result.Stats.Skips, result.Stats.Errors)

	if len(result.Mismatches) == 0 {
		fmt.Fprintln(w, "✓ verified")
		return
	}
	fmt.Fprintf(w, "✗ %d altered entry(ies)\n", len(result.Mismatches))
	for _, m := range result.Mismatches {
		fmt.Fprintf(w, "  [%d] %s: %s\n", m.Seq, m.ID, m.Reason)
	}
}

func completeStatus(s TraceStats) string {
	switch {
	case s.Interrupted:
		return "interrupted"
	case !s.IsComplete:
		return "incomplete"
	case s.Cancelled:
		return "complete (cancelled)"
	default:
		return "complete"
	}
}

// printEntries writes one line per entry, optionally limited to one raise.
func printEntries(w io.Writer, entries []trace.Entry, raiseID string) {
	for _, e := range entries {
		if raiseID != "" && e.RaiseID != raiseID {
			continue
		}
		fmt.Fprintf(w, "  [%d] %-4s %-9s %s", e.Seq, e.Phase, e.Kind, e.Event)
		if e.Listener != "" {
			fmt.Fprintf(w, "/%s", e.Listener)
		}
		if e.Parent != "" {
			fmt.Fprintf(w, " (from %s)", e.Parent)
		}
		if e.Kind == trace.KindDispatch || e.Kind == trace.KindSkip || e.Kind == trace.KindImmutable {
			fmt.Fprintf(w, " priority=%d", e.Priority)
		}
		if e.Cancelled {
			fmt.Fprint(w, " cancelled")
		}
		if e.Error != "" {
			fmt.Fprintf(w, " error=%q", e.Error)
		}
		fmt.Fprintln(w)
	}
}
