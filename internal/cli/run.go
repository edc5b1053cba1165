package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/harness"
	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/journal"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// RunOutput is the JSON payload of the run command.
type RunOutput struct {
	Scenario string          `json:"scenario"`
	Result   *harness.Result `json:"result"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run one scenario and print its trace",
		Long: `Run a scenario file and print every raise outcome and trace entry.

With --db (or ENKI_JOURNAL) the trace is appended to a SQLite journal
that "enki trace" can inspect later. Without it an in-memory journal is
used.

Example:
  enki run scenarios/combat.yaml
  enki run scenarios/combat.yaml --db ./enki.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.Config.Journal, "path to SQLite journal")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	logger := opts.logger(cmd.ErrOrStderr())
	formatter := opts.formatter(cmd)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	runOpts := harness.Options{Logger: logger, MaxDepth: opts.Config.MaxDepth}
	if opts.Database != "" {
		logger.Info("opening journal", "path", opts.Database)
		j, err := journal.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		runOpts.Journal = j
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	result, err := harness.RunContext(ctx, scenario, runOpts)
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario could not run", err)
	}

	if formatter.JSON() {
		out := RunOutput{Scenario: scenario.Name, Result: result}
		if result.Pass {
			err = formatter.Success(out)
		} else {
			err = formatter.Result(out, ErrCodeTestFailed, "scenario failed")
		}
		if err != nil {
			return err
		}
	} else {
		printRunText(cmd, scenario, result)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

func printRunText(cmd *cobra.Command, scenario *harness.Scenario, result *harness.Result) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Scenario: %s\n", scenario.Name)
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "⚠ %s\n", warn)
	}
	for i, r := range result.Raises {
		fmt.Fprintf(w, "\nRaise %d: %s (%s)\n", i, r.Event, r.RaiseID)
		fmt.Fprintf(w, "  state=%s cancelled=%t\n", r.State, r.Cancelled)
		if r.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", r.Error)
		}
		printEntries(w, result.Trace, r.RaiseID)
	}

	fmt.Fprintln(w)
	if result.Pass {
		fmt.Fprintln(w, "✓ passed")
		return
	}
	fmt.Fprintln(w, "✗ failed")
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// signalContext cancels the command context on SIGINT/SIGTERM so a long
// raise stops between listeners.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
