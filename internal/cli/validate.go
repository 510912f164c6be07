package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/anfir/internal/compiler"
	"github.com/roach88/anfir/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                        `json:"valid"`
	Graphs    int                         `json:"graphs"`
	Errors    []compiler.ValidationError  `json:"errors,omitempty"`
	Recursion []compiler.RecursionWarning `json:"recursion,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <specs-dir>",
		Short: "Validate graph specs",
		Long: `Compile the CUE graph declarations of a directory and check the
resulting IR: every graph has an output, parameters belong to their graph,
and every graph reference resolves.

Recursive graphs are legal. They are reported as information: a clone of
one member of a recursive group shares the others unless they capture it
or --total is given.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loadResult, err := LoadSpecs(specsDir)
	if err != nil {
		// Specs that fail to compile are invalid specs, not a bad invocation.
		var compileErr *compiler.CompileError
		if !errors.As(err, &compileErr) {
			return outputLoadError(formatter, err)
		}
		var loadErr *LoadError
		errors.As(err, &loadErr)
		return outputValidationErrors(formatter, ValidationResult{
			Errors: []compiler.ValidationError{{
				Field:   compileErr.Field,
				Message: compileErr.Message,
				Code:    loadErr.Code,
			}},
		})
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specsDir)

	result := validateProgram(loadResult.Program, formatter)
	opts.logger().Debug("specs validated",
		"dir", specsDir,
		"errors", len(result.Errors),
		"recursive_groups", len(result.Recursion),
	)
	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// validateProgram validates every top-level graph and analyzes recursion.
// A graph reachable from several roots is reported once.
func validateProgram(prog *compiler.Program, formatter *OutputFormatter) ValidationResult {
	result := ValidationResult{Graphs: len(prog.Graphs)}

	roots := make([]ir.GraphID, 0, len(prog.Order))
	seen := make(map[string]bool)
	for _, name := range prog.Order {
		formatter.VerboseLog("Validating graph: %s", name)
		g := prog.Graphs[name]
		roots = append(roots, g)
		for _, e := range compiler.Validate(prog.Module, g) {
			if key := e.Error(); !seen[key] {
				seen[key] = true
				result.Errors = append(result.Errors, e)
			}
		}
	}

	result.Recursion = compiler.AnalyzeRecursion(prog.Module, roots)
	result.Valid = len(result.Errors) == 0
	return result
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ All specs valid (%d graph(s))\n", result.Graphs)
	printRecursion(formatter, result.Recursion)
	return nil
}

func printRecursion(formatter *OutputFormatter, warnings []compiler.RecursionWarning) {
	for _, w := range warnings {
		fmt.Fprintf(formatter.Writer, "ℹ %s\n", w.Message)
	}
}

// outputValidationErrors outputs validation errors. Invalid specs are a
// validation failure (exit code 1).
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.Format == "json" {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		if err.Graph != "" {
			fmt.Fprintf(formatter.Writer, "graph %s\n", err.Graph)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	printRecursion(formatter, result.Recursion)

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
