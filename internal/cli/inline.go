package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/anfir/internal/clone"
	"github.com/roach88/anfir/internal/compiler"
	"github.com/roach88/anfir/internal/debug"
	"github.com/roach88/anfir/internal/harness"
	"github.com/roach88/anfir/internal/ir"
	"github.com/roach88/anfir/internal/store"
)

// InlineOptions holds flags for the inline command.
type InlineOptions struct {
	*RootOptions
	Source         string
	Target         string
	Args           []string
	RemapSource    bool
	CloneConstants bool
	Total          bool
	Database       string

	// IDGenerator overrides session IDs (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator store.IDGenerator
}

// InlineResult reports an inline request.
type InlineResult struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	GraphsCloned int    `json:"graphs_cloned"`
	NodesCloned  int    `json:"nodes_cloned"`
	Listing      string `json:"listing"`
	SessionID    string `json:"session_id,omitempty"`
	Seq          int64  `json:"seq,omitempty"`
}

// NewInlineCommand creates the inline command.
func NewInlineCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InlineOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inline <specs-dir>",
		Short: "Splice one graph's body into another",
		Long: `Inline the body of --source into --target, replacing the source's
parameters with one --arg each, and print the target with the spliced body
as its output.

An --arg is a YAML scalar: integers, true, false and null become literal
constants; any other string names a node, either "graph:node" or a name
visible in the target.

With --remap-source, calls to the source inside its own body call the
target instead.

Example:
  anfir inline ./specs --source f --target main --arg 2 --arg 5
  anfir inline ./specs --source fact --target loop --arg n --remap-source`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInline(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Source, "source", "", "graph whose body is inlined (required)")
	cmd.Flags().StringVar(&opts.Target, "target", "", "graph receiving the body (required)")
	cmd.Flags().StringArrayVar(&opts.Args, "arg", nil, "replacement for the next source parameter (repeatable)")
	cmd.Flags().BoolVar(&opts.RemapSource, "remap-source", false, "translate the source graph to the target")
	cmd.Flags().BoolVar(&opts.CloneConstants, "clone-constants", false, "duplicate literal and primitive constants")
	cmd.Flags().BoolVar(&opts.Total, "total", false, "clone every graph the source references")
	cmd.Flags().StringVar(&opts.Database, "db", "", "append the session to this SQLite journal")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func runInline(opts *InlineOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger()

	loadResult, err := LoadSpecs(specsDir)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	prog := loadResult.Program
	m := prog.Module

	graphs, err := resolveGraphs(prog, []string{opts.Source, opts.Target})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRequest, err.Error())
	}
	source, target := graphs[0], graphs[1]

	replacements := make([]ir.NodeID, len(opts.Args))
	for i, arg := range opts.Args {
		replacements[i], err = parseArgument(prog, target, arg)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeRequest, fmt.Sprintf("--arg %q: %v", arg, err))
		}
	}

	fp, err := ir.Fingerprint(m, source)
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
	if err := cl.Inline(source, target, replacements, opts.RemapSource); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRequest, err.Error())
	}

	out, err := m.Output(source)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}
	if err := m.SetOutput(target, cl.Node(out)); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}
	listing, err := ir.Print(m, target)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	sess := store.Session{
		Kind:           store.SessionInline,
		Source:         specsDir,
		Roots:          []string{opts.Source, opts.Target},
		CloneConstants: opts.CloneConstants,
		Total:          opts.Total,
		RemapSource:    opts.RemapSource,
		Fingerprint:    fp,
		IRVersion:      ir.IRVersion,
	}
	sess.Graphs, sess.Nodes = store.RecordTable(m, cl.Table())
	graphsCreated, nodesCreated := cl.Created()

	result := &InlineResult{
		Source:       opts.Source,
		Target:       opts.Target,
		GraphsCloned: graphsCreated,
		NodesCloned:  nodesCreated,
		Listing:      listing,
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
	fmt.Fprintf(w, "✓ Inlined %s into %s (%d graph(s), %d node(s))\n",
		result.Source, result.Target, result.GraphsCloned, result.NodesCloned)
	if result.SessionID != "" {
		fmt.Fprintf(w, "  journaled session %s (seq %d)\n", result.SessionID, result.Seq)
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, result.Listing)
	return nil
}

// parseArgument turns an --arg value into a replacement node. Scalars are
// decoded as YAML, the same way scenario files decode inline arguments.
func parseArgument(prog *compiler.Program, target ir.GraphID, arg string) (ir.NodeID, error) {
	var val any
	if err := yaml.Unmarshal([]byte(arg), &val); err != nil {
		val = arg
	}
	if ref, ok := val.(string); ok {
		return resolveNode(prog, target, ref)
	}
	lit, err := harness.Literal(val)
	if err != nil {
		return ir.NoNodeID, err
	}
	return prog.Module.NewConstant(ir.LiteralValue(lit))
}

// resolveNode finds a node by debug name. "graph:node" looks in the named
// graph; a bare name looks in scope.
func resolveNode(prog *compiler.Program, scope ir.GraphID, ref string) (ir.NodeID, error) {
	name := ref
	if graphName, nodeName, ok := strings.Cut(ref, ":"); ok {
		g, found := prog.Graph(graphName)
		if !found {
			return ir.NoNodeID, fmt.Errorf("unknown graph %q", graphName)
		}
		scope, name = g, nodeName
	}
	idx, err := debug.NewIndex(prog.Module, scope, ir.SuccIncoming)
	if err != nil {
		return ir.NoNodeID, err
	}
	n, ok := idx.Node(name)
	if !ok {
		return ir.NoNodeID, fmt.Errorf("no node named %q in graph %s", name, prog.Module.GraphName(scope))
	}
	return n, nil
}
