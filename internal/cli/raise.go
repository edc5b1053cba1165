package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/compiler"
	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/event"
	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/journal"
	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/trace"
)

// RaiseOptions holds flags for the raise command.
type RaiseOptions struct {
	*RootOptions
	Database  string
	Fields    []string // key=value
	Cancelled bool
	PreOnly   bool
}

// RaiseOutput is the JSON payload of the raise command.
type RaiseOutput struct {
	Event     string            `json:"event"`
	RaiseID   string            `json:"raise_id"`
	State     string            `json:"state"`
	Cancelled bool              `json:"cancelled"`
	Fields    map[string]string `json:"fields,omitempty"`
	Rejected  []string          `json:"rejected,omitempty"`
	Error     string            `json:"error,omitempty"`
	Trace     []trace.Entry     `json:"trace"`
}

// NewRaiseCommand creates the raise command.
func NewRaiseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RaiseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "raise <definition> <event>",
		Short: "Raise one event from a definition",
		Long: `Build the events of a definition and raise one of them once.

The raise gets a UUIDv7 raise ID. Dependent nesting is capped by
ENKI_MAX_DEPTH unless the definition sets max_depth for the event.

Example:
  enki raise combat.yaml damage --field amount=12
  enki raise combat.cue damage --cancelled --pre-only --db ./enki.db`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return raiseEvent(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.Config.Journal, "path to SQLite journal")
	cmd.Flags().StringArrayVar(&opts.Fields, "field", nil, "payload field as key=value (repeatable)")
	cmd.Flags().BoolVar(&opts.Cancelled, "cancelled", false, "start the raise cancelled")
	cmd.Flags().BoolVar(&opts.PreOnly, "pre-only", false, "skip the post-event phase")

	return cmd
}

func parseFields(pairs []string) (map[string]string, error) {
	fields := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --field %q: want key=value", pair)
		}
		fields[k] = v
	}
	return fields, nil
}

func raiseEvent(opts *RaiseOptions, path, name string, cmd *cobra.Command) error {
	logger := opts.logger(cmd.ErrOrStderr())
	formatter := opts.formatter(cmd)

	fields, err := parseFields(opts.Fields)
	if err != nil {
		return WrapExitError(ExitCommandError, "bad arguments", err)
	}

	def, err := compiler.LoadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load definition", err)
	}

	rec := trace.NewRecorder()
	tracer := trace.Tracer(rec)

	var flusher *journal.Recorder
	if opts.Database != "" {
		j, err := journal.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		flusher = journal.NewRecorder(j)
		tracer = trace.Multi(rec, flusher)
	}

	evOpts := []event.Option{event.WithLogger(logger), event.WithTracer(tracer)}
	if opts.Config.MaxDepth > 0 {
		evOpts = append(evOpts, event.WithMaxDepth(opts.Config.MaxDepth))
	}
	graph, err := compiler.Build(def, evOpts...)
	if err != nil {
		return WrapExitError(ExitFailure, "invalid definition", err)
	}
	ev, ok := graph.Event(name)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown event %q (have %v)", name, graph.Names()))
	}

	payload := compiler.NewPayload(fields)
	if opts.Cancelled {
		if err := payload.SetCancelled(true); err != nil {
			return WrapExitError(ExitCommandError, "failed to pre-cancel", err)
		}
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	var raiseErr error
	if opts.PreOnly {
		raiseErr = ev.Raise(ctx, nil, payload)
	} else {
		raiseErr = ev.RaiseAll(ctx, nil, payload)
	}

	if flusher != nil {
		n, err := flusher.Flush(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to write journal", err)
		}
		formatter.VerboseLog("Journaled %d entries to %s", n, opts.Database)
	}

	out := RaiseOutput{
		Event:     name,
		RaiseID:   payload.RaiseID(),
		State:     payload.State().String(),
		Cancelled: payload.IsCancelled(),
		Fields:    payload.Fields(),
		Rejected:  payload.Rejected(),
		Trace:     rec.Entries(),
	}
	if raiseErr != nil {
		out.Error = raiseErr.Error()
	}

	if formatter.JSON() {
		if raiseErr != nil {
			err = formatter.Result(out, ErrCodeGeneric, "raise failed")
		} else {
			err = formatter.Success(out)
		}
		if err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Raised %s (%s)\n", out.Event, out.RaiseID)
		fmt.Fprintf(w, "  state=%s cancelled=%t\n", out.State, out.Cancelled)
		for _, label := range out.Rejected {
			fmt.Fprintf(w, "  listener %s: cancellation change refused\n", label)
		}
		printEntries(w, out.Trace, "")
		if out.Error != "" {
			fmt.Fprintf(w, "✗ %s\n", out.Error)
		}
	}

	if raiseErr != nil {
		return WrapExitError(ExitFailure, "raise failed", raiseErr)
	}
	return nil
}
