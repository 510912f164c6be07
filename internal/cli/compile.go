package cli

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/anfir/internal/compiler"
	"github.com/roach88/anfir/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Print  bool   // print the listing of every top-level graph
	Output string // write the listing to a file
}

// GraphSummary describes one top-level graph.
type GraphSummary struct {
	Name        string   `json:"name"`
	Params      []string `json:"params"`
	Nested      []string `json:"nested,omitempty"`
	Nodes       int      `json:"nodes"` // Deep-reachable from the output
	Fingerprint string   `json:"fingerprint"`
}

// CompilationResult holds the summaries and, when requested, the listing.
type CompilationResult struct {
	Graphs  []GraphSummary `json:"graphs"`
	Listing string         `json:"listing,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <specs-dir>",
		Short: "Compile CUE graph specs to IR",
		Long: `Compile the CUE graph declarations of a directory into one IR module.

Prints a summary of every top-level graph with its structural fingerprint.
With --print, also prints the deterministic listing of each graph.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Print, "print", false, "print the listing of every top-level graph")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the listing to a file")

	return cmd
}

func runCompile(opts *CompileOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, err := LoadSpecs(specsDir)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	prog := loadResult.Program
	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specsDir)

	result := &CompilationResult{}
	listings := make([]string, 0, len(prog.Order))
	for _, name := range prog.Order {
		formatter.VerboseLog("Summarizing graph: %s", name)
		summary, err := summarizeGraph(prog, name)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
		}
		result.Graphs = append(result.Graphs, summary)

		if opts.Print || opts.Output != "" {
			listing, err := ir.Print(prog.Module, prog.Graphs[name])
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
			}
			listings = append(listings, listing)
		}
	}
	listing := strings.Join(listings, "\n")
	if opts.Print {
		result.Listing = listing
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(listing), 0644); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	opts.logger().Debug("specs compiled", "dir", specsDir, "graphs", len(prog.Graphs))
	return outputCompileSuccess(formatter, result, opts.Output)
}

// summarizeGraph describes the top-level graph name.
func summarizeGraph(prog *compiler.Program, name string) (GraphSummary, error) {
	m := prog.Module
	g := prog.Graphs[name]

	summary := GraphSummary{Name: name, Params: []string{}}
	for _, p := range m.Params(g) {
		summary.Params = append(summary.Params, m.NodeName(p))
	}
	for qualified := range prog.Graphs {
		if strings.HasPrefix(qualified, name+".") {
			summary.Nested = append(summary.Nested, qualified)
		}
	}
	slices.Sort(summary.Nested)

	nodes, err := m.GraphNodes(g, ir.SuccDeep)
	if err != nil {
		return summary, fmt.Errorf("graph %s: %w", name, err)
	}
	summary.Nodes = len(nodes)

	summary.Fingerprint, err = ir.Fingerprint(m, g)
	if err != nil {
		return summary, fmt.Errorf("graph %s: %w", name, err)
	}
	return summary, nil
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d graph(s)\n\n", len(result.Graphs))
	for _, g := range result.Graphs {
		fmt.Fprintf(w, "  %s(%s): %d node(s), fingerprint %s\n",
			g.Name, strings.Join(g.Params, ", "), g.Nodes, shortHash(g.Fingerprint))
		if len(g.Nested) > 0 {
			fmt.Fprintf(w, "    nested: %s\n", strings.Join(g.Nested, ", "))
		}
	}

	if result.Listing != "" {
		fmt.Fprintln(w)
		fmt.Fprint(w, result.Listing)
	}

	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote listing to %s\n", outputFile)
	}

	return nil
}

// outputLoadError reports a LoadSpecs failure. Bad specs are command errors
// (exit code 2).
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	if formatter.Format == "json" {
		_ = formatter.Error(loadErr.Code, loadErr.Message, positionDetails(loadErr))
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
		fmt.Fprintln(formatter.Writer)
		if loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", loadErr.Code, loadErr.Message)
	}
	return NewExitError(ExitCommandError, loadErr.Error())
}

func positionDetails(e *LoadError) any {
	if !e.Pos.IsValid() {
		return nil
	}
	return map[string]any{
		"file":   e.Pos.Filename(),
		"line":   e.Pos.Line(),
		"column": e.Pos.Column(),
	}
}

// shortHash abbreviates a fingerprint for text output.
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
