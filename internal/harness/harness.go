package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/anfir/internal/clone"
	"github.com/roach88/anfir/internal/compiler"
	"github.com/roach88/anfir/internal/debug"
	"github.com/roach88/anfir/internal/ir"
	"github.com/roach88/anfir/internal/store"
	"github.com/roach88/anfir/internal/testutil"
)

// Harness executes one scenario against a freshly compiled module.
type Harness struct {
	prog   *compiler.Program
	cloner *clone.Cloner
	store  *store.Store
	clock  *store.Clock
	ids    store.IDGenerator
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario compiles its own module and journals into its own
// in-memory database, so scenarios are isolated from each other.
//
// Execution flow:
//  1. Compile the scenario's CUE specs
//  2. Perform the clone or inline request
//  3. Journal the translation table
//  4. Evaluate assertions against the cloner, listing and journal
func Run(scenario *Scenario) (*Result, error) {
	prog, err := compiler.LoadFiles(scenario.Specs...)
	if err != nil {
		return nil, fmt.Errorf("failed to compile specs: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	cl, err := clone.New(prog.Module,
		clone.WithCloneConstants(scenario.Request.CloneConstants),
		clone.WithTotal(scenario.Request.Total),
		clone.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		prog:   prog,
		cloner: cl,
		store:  st,
		clock:  store.NewClock(),
		ids:    testutil.NewSequentialIDGenerator(scenario.Name),
		logger: logger,
	}

	ctx := context.Background()
	result := NewResult()

	sess, err := h.execute(scenario.Request, result)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	if err := h.journal(ctx, sess, result); err != nil {
		return nil, fmt.Errorf("failed to journal session: %w", err)
	}

	actx := &AssertionContext{
		Harness: h,
		Result:  result,
		Ctx:     ctx,
	}
	for _, errMsg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// execute performs the request and fills result.Listing. It returns the
// session to journal, without mappings.
func (h *Harness) execute(req Request, result *Result) (store.Session, error) {
	m := h.prog.Module
	sess := store.Session{
		CloneConstants: req.CloneConstants,
		Total:          req.Total,
		IRVersion:      ir.IRVersion,
	}

	if req.Inline != nil {
		return h.executeInline(req.Inline, sess, result)
	}

	roots := make([]ir.GraphID, len(req.Clone))
	for i, name := range req.Clone {
		g, err := h.graph(name)
		if err != nil {
			return sess, err
		}
		roots[i] = g
	}
	fp, err := ir.Fingerprint(m, roots[0])
	if err != nil {
		return sess, err
	}
	if err := h.cloner.Clone(roots...); err != nil {
		return sess, err
	}

	listings := make([]string, len(roots))
	for i, g := range roots {
		listings[i], err = ir.Print(m, h.cloner.Graph(g))
		if err != nil {
			return sess, err
		}
	}
	result.Listing = strings.Join(listings, "\n")

	sess.Kind = store.SessionClone
	sess.Roots = req.Clone
	sess.Fingerprint = fp
	h.logger.Info("clone request completed", "roots", req.Clone)
	return sess, nil
}

func (h *Harness) executeInline(req *InlineRequest, sess store.Session, result *Result) (store.Session, error) {
	m := h.prog.Module
	source, err := h.graph(req.Source)
	if err != nil {
		return sess, err
	}
	target, err := h.graph(req.Target)
	if err != nil {
		return sess, err
	}
	args := make([]ir.NodeID, len(req.Args))
	for i, a := range req.Args {
		args[i], err = h.argument(a)
		if err != nil {
			return sess, fmt.Errorf("args[%d]: %w", i, err)
		}
	}

	fp, err := ir.Fingerprint(m, source)
	if err != nil {
		return sess, err
	}
	if err := h.cloner.Inline(source, target, args, req.RemapSource); err != nil {
		return sess, err
	}

	out, err := m.Output(source)
	if err != nil {
		return sess, err
	}
	if err := m.SetOutput(target, h.cloner.Node(out)); err != nil {
		return sess, err
	}
	result.Listing, err = ir.Print(m, target)
	if err != nil {
		return sess, err
	}

	sess.Kind = store.SessionInline
	sess.Roots = []string{req.Source, req.Target}
	sess.RemapSource = req.RemapSource
	sess.Fingerprint = fp
	h.logger.Info("inline request completed", "source", req.Source, "target", req.Target)
	return sess, nil
}

// journal writes the session with the cloner's table and checks that it
// reads back.
func (h *Harness) journal(ctx context.Context, sess store.Session, result *Result) error {
	sess.ID = h.ids.Generate()
	sess.Seq = h.clock.Next()
	sess.Source = "harness"
	sess.Graphs, sess.Nodes = store.RecordTable(h.prog.Module, h.cloner.Table())
	if err := h.store.WriteSession(ctx, sess); err != nil {
		return err
	}

	stored, err := h.store.ReadSession(ctx, sess.ID)
	if err != nil {
		return err
	}
	result.SessionID = stored.ID
	result.GraphsCloned, result.NodesCloned = h.cloner.Created()
	return nil
}

// graph resolves a qualified graph name.
func (h *Harness) graph(name string) (ir.GraphID, error) {
	g, ok := h.prog.Graph(name)
	if !ok {
		return ir.NoGraphID, fmt.Errorf("unknown graph %q", name)
	}
	return g, nil
}

// node resolves a "graph:node" reference by debug name, looking only at the
// graph's own scope.
func (h *Harness) node(ref string) (ir.NodeID, error) {
	graphName, nodeName, ok := strings.Cut(ref, ":")
	if !ok {
		return ir.NoNodeID, fmt.Errorf("node reference %q must be graph:node", ref)
	}
	g, err := h.graph(graphName)
	if err != nil {
		return ir.NoNodeID, err
	}
	idx, err := debug.NewIndex(h.prog.Module, g, ir.SuccIncoming)
	if err != nil {
		return ir.NoNodeID, err
	}
	n, ok := idx.Node(nodeName)
	if !ok {
		return ir.NoNodeID, fmt.Errorf("no node %q in graph %s", nodeName, graphName)
	}
	return n, nil
}

// argument converts a YAML-parsed inline argument to a node.
func (h *Harness) argument(val any) (ir.NodeID, error) {
	if ref, ok := val.(string); ok {
		return h.node(ref)
	}
	lit, err := Literal(val)
	if err != nil {
		return ir.NoNodeID, err
	}
	return h.prog.Module.NewConstant(ir.LiteralValue(lit))
}

// Literal converts a YAML-parsed scalar to a literal. Strings are not
// literals here: callers treat them as references.
func Literal(val any) (ir.IRValue, error) {
	switch v := val.(type) {
	case nil:
		return ir.IRNull{}, nil
	case int:
		return ir.IRInt(int64(v)), nil
	case int64:
		return ir.IRInt(v), nil
	case float64:
		// Integral floats are accepted; fractional ones have no literal form.
		if v == float64(int64(v)) {
			return ir.IRInt(int64(v)), nil
		}
		return nil, fmt.Errorf("float literals are not supported: %v", v)
	case bool:
		return ir.IRBool(v), nil
	default:
		return nil, fmt.Errorf("unsupported argument type %T", val)
	}
}
