package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Events   []string                   `json:"events"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.CycleWarning    `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <definition>",
		Short: "Validate an event definition",
		Long: `Validate a YAML, JSON or CUE event definition (or a directory holding a
CUE package).

Reports every schema problem at once and warns about dependent cycles.
Cycles are legal: a raise skips the edge that would close the cycle.

Exit codes:
  0 - Definition is valid (warnings allowed)
  1 - Definition has errors
  2 - Definition could not be read`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // We handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	def, err := compiler.LoadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("definition not found: %s", path), nil)
			return WrapExitError(ExitCommandError, "definition not found", err)
		}
		// Parse errors are definition errors, not command errors.
		result := ValidationResult{
			Events: []string{},
			Errors: []compiler.ValidationError{{Field: "definition", Message: err.Error(), Code: compiler.ErrDefinitionParse}},
		}
		return outputValidation(formatter, path, result)
	}

	formatter.VerboseLog("Loaded %d event(s) from %s", len(def.Events), path)

	result := ValidationResult{
		Events:   def.Names(),
		Errors:   compiler.Validate(def),
		Warnings: compiler.AnalyzeCycles(def),
	}
	result.Valid = len(result.Errors) == 0

	return outputValidation(formatter, path, result)
}

func outputValidation(f *OutputFormatter, path string, result ValidationResult) error {
	if f.JSON() {
		var err error
		if result.Valid {
			err = f.Success(result)
		} else {
			err = f.Result(result, ErrCodeInvalid, fmt.Sprintf("%d validation error(s)", len(result.Errors)))
		}
		if err != nil {
			return err
		}
	} else {
		w := f.Writer
		for _, e := range result.Errors {
			fmt.Fprintf(w, "✗ %s\n", e.Error())
		}
		for _, warn := range result.Warnings {
			fmt.Fprintf(w, "⚠ %s\n", warn.Message)
		}
		if result.Valid {
			fmt.Fprintf(w, "✓ %s is valid (%d event(s))\n", path, len(result.Events))
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(result.Errors)))
	}
	return nil
}
