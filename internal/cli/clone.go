package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/anfir/internal/clone"
	"github.com/roach88/anfir/internal/compiler"
	"github.com/roach88/anfir/internal/ir"
	"github.com/roach88/anfir/internal/store"
)

// CloneOptions holds flags for the clone command.
type CloneOptions struct {
	*RootOptions
	Graphs         []string
	Total          bool
	CloneConstants bool
	Database       string

	// IDGenerator overrides session IDs (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator store.IDGenerator
}

// CloneResult reports a clone request.
type CloneResult struct {
	Roots        []string `json:"roots"`
	GraphsCloned int      `json:"graphs_cloned"`
	NodesCloned  int      `json:"nodes_cloned"`

	// Fingerprint is the structural hash of the first root. Faithful reports
	// whether its copy hashes the same.
	Fingerprint string `json:"fingerprint"`
	Faithful    bool   `json:"faithful"`

	Listing   string `json:"listing"`
	SessionID string `json:"session_id,omitempty"`
	Seq       int64  `json:"seq,omitempty"`
}

// NewCloneCommand creates the clone command.
func NewCloneCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CloneOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "clone <specs-dir>",
		Short: "Clone graphs and print the copies",
		Long: `Clone one or more graphs of a specs directory.

Closures that read a cloned graph's nodes are cloned with it; graphs that
capture nothing are shared unless --total is given. With --db the
translation table is appended to a SQLite journal.

Example:
  anfir clone ./specs --graph f
  anfir clone ./specs --graph f --graph g --total --db ./anfir.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClone(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Graphs, "graph", "g", nil, "qualified name of a graph to clone (repeatable, required)")
	cmd.Flags().BoolVar(&opts.Total, "total", false, "clone every referenced graph, captured or not")
	cmd.Flags().BoolVar(&opts.CloneConstants, "clone-constants", false, "duplicate literal and primitive constants")
	cmd.Flags().StringVar(&opts.Database, "db", "", "append the session to this SQLite journal")
	_ = cmd.MarkFlagRequired("graph")

	return cmd
}

func runClone(opts *CloneOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger()

	loadResult, err := LoadSpecs(specsDir)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	prog := loadResult.Program
	m := prog.Module

	roots, err := resolveGraphs(prog, opts.Graphs)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRequest, err.Error())
	}

	fp, err := ir.Fingerprint(m, roots[0])
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	cl, err := clone.New(m,
		clone.WithCloneConstants(opts.CloneConstants),
		clone.WithTotal(opts.Total),
		clone.WithLogger(logger),
	)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}
	if err := cl.Clone(roots...); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRequest, err.Error())
	}

	listings := make([]string, len(roots))
	for i, g := range roots {
		formatter.VerboseLog("Printing copy of %s", opts.Graphs[i])
		listings[i], err = ir.Print(m, cl.Graph(g))
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
		}
	}
	copyFP, err := ir.Fingerprint(m, cl.Graph(roots[0]))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	sess := store.Session{
		Kind:           store.SessionClone,
		Source:         specsDir,
		Roots:          opts.Graphs,
		CloneConstants: opts.CloneConstants,
		Total:          opts.Total,
		Fingerprint:    fp,
		IRVersion:      ir.IRVersion,
	}
	sess.Graphs, sess.Nodes = store.RecordTable(m, cl.Table())
	graphsCreated, nodesCreated := cl.Created()

	result := &CloneResult{
		Roots:        opts.Graphs,
		GraphsCloned: graphsCreated,
		NodesCloned:  nodesCreated,
		Fingerprint:  fp,
		Faithful:     copyFP == fp,
		Listing:      strings.Join(listings, "\n"),
	}

	if opts.Database != "" {
		sess, err = journalSession(commandContext(cmd), opts.Database, opts.IDGenerator, sess, logger)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("journal: %v", err))
		}
		result.SessionID = sess.ID
		result.Seq = sess.Seq
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	w := formatter.Writer
	fmt.Fprintf(w, "✓ Cloned %s (%d graph(s), %d node(s))\n",
		strings.Join(result.Roots, ", "), result.GraphsCloned, result.NodesCloned)
	if result.SessionID != "" {
		fmt.Fprintf(w, "  journaled session %s (seq %d)\n", result.SessionID, result.Seq)
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, result.Listing)
	return nil
}

// resolveGraphs looks up qualified graph names.
func resolveGraphs(prog *compiler.Program, names []string) ([]ir.GraphID, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("at least one graph is required")
	}
	roots := make([]ir.GraphID, len(names))
	for i, name := range names {
		g, ok := prog.Graph(name)
		if !ok {
			return nil, fmt.Errorf("unknown graph %q", name)
		}
		roots[i] = g
	}
	return roots, nil
}
