package clone

import (
	"fmt"
	"log/slog"

	"github.com/roach88/anfir/internal/ir"
)

// Cloner duplicates graphs of a module and remembers every translation it
// performed. Lookups of entities it never translated return them unchanged,
// so callers can rewrite a mix of in-scope and out-of-scope references
// uniformly.
//
// The table accumulates: a later request reuses the translations of earlier
// ones. A Cloner is not safe for concurrent use.
type Cloner struct {
	m              *ir.Module
	cloneConstants bool
	total          bool
	logger         *slog.Logger
	table          *Table

	roots []ir.GraphID // initial roots from WithRoot

	// Entities created so far. Inline seeds are translations, not creations.
	graphsCreated int
	nodesCreated  int
}

// Option configures a Cloner.
type Option func(*Cloner)

// WithRoot clones g (and its resolved scope) as part of New.
func WithRoot(g ir.GraphID) Option {
	return func(c *Cloner) {
		c.roots = append(c.roots, g)
	}
}

// WithCloneConstants controls whether literal and primitive constants are
// duplicated. When false (the default) clones share them with the originals.
func WithCloneConstants(on bool) Option {
	return func(c *Cloner) {
		c.cloneConstants = on
	}
}

// WithTotal makes every graph referenced from the cloned scope part of the
// scope, captured or not.
func WithTotal(on bool) Option {
	return func(c *Cloner) {
		c.total = on
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cloner) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Cloner over m. Roots given with WithRoot are cloned before
// New returns.
func New(m *ir.Module, opts ...Option) (*Cloner, error) {
	c := &Cloner{
		m:      m,
		logger: slog.Default(),
		table:  newTable(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.roots) > 0 {
		if err := c.Clone(c.roots...); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Clone duplicates roots together with every graph their scope requires.
// Roots already translated by this Cloner keep their translation.
func (c *Cloner) Clone(roots ...ir.GraphID) error {
	scope, err := resolveScope(c.m, roots, c.total, c.logger)
	if err != nil {
		return fmt.Errorf("resolve scope: %w", err)
	}

	e := newEngine(c.m, scope, c.cloneConstants, c.table)
	for _, g := range roots {
		if _, err := e.graph(g); err != nil {
			return fmt.Errorf("clone %s: %w", g, err)
		}
	}
	if err := e.drain(); err != nil {
		return fmt.Errorf("clone: %w", err)
	}
	c.graphsCreated += e.graphsCreated
	c.nodesCreated += e.nodesCreated

	c.logger.Info("clone complete",
		"roots", roots,
		"scope", scope.Len(),
		"graphs_cloned", e.graphsCreated,
		"nodes_cloned", e.nodesCreated,
		"clone_constants", c.cloneConstants,
		"total", c.total,
	)
	return nil
}

// Inline clones the body of source into target, substituting replacements
// for source's parameters in order. Nodes owned by source are recreated with
// owner target; closures of source that capture it are cloned as usual.
//
// Afterwards Node(output of source) is the spliced body. Neither source nor
// target is modified: in particular target's output is left alone.
//
// With remapSource false, Graph(source) stays source and self references in
// the body keep calling source. With remapSource true, source translates to
// target, so those references call target instead.
//
// A replacement count different from source's parameter count fails with an
// arity error before anything is created.
func (c *Cloner) Inline(source, target ir.GraphID, replacements []ir.NodeID, remapSource bool) error {
	if !c.m.HasGraph(target) {
		return fmt.Errorf("inline target: %w", &ir.IRError{
			Code:    ir.ErrCodeUnknownGraph,
			Message: "graph does not belong to this module",
			Graph:   target,
		})
	}
	if _, err := c.m.Output(source); err != nil {
		return fmt.Errorf("inline source: %w", err)
	}
	params := c.m.Params(source)
	if len(params) != len(replacements) {
		return NewArityError(source, len(params), len(replacements))
	}
	for _, r := range replacements {
		if !c.m.HasNode(r) {
			return &CloneError{
				Code:    ErrCodeUnknownReplacement,
				Message: fmt.Sprintf("replacement %s does not belong to this module", r),
				Graph:   source,
			}
		}
	}

	scope, err := resolveScope(c.m, []ir.GraphID{source}, c.total, c.logger)
	if err != nil {
		return fmt.Errorf("resolve scope: %w", err)
	}

	for i, p := range params {
		c.table.setNode(p, replacements[i])
	}
	if remapSource {
		c.table.setGraph(source, target)
	}
	c.logger.Debug("inline seeded",
		"source", source,
		"target", target,
		"params", len(params),
		"remap_source", remapSource,
	)

	e := newEngine(c.m, scope, c.cloneConstants, c.table).inlining(source, target)
	out, _ := c.m.Output(source)
	if _, err := e.node(out); err != nil {
		return fmt.Errorf("inline %s into %s: %w", source, target, err)
	}
	if err := e.drain(); err != nil {
		return fmt.Errorf("inline %s into %s: %w", source, target, err)
	}
	c.graphsCreated += e.graphsCreated
	c.nodesCreated += e.nodesCreated

	c.logger.Info("inline complete",
		"source", source,
		"target", target,
		"scope", scope.Len(),
		"graphs_cloned", e.graphsCreated,
		"nodes_cloned", e.nodesCreated,
	)
	return nil
}

// Node returns the translation of n, or n itself if it was never translated.
func (c *Cloner) Node(n ir.NodeID) ir.NodeID {
	if nn, ok := c.table.Node(n); ok {
		return nn
	}
	return n
}

// Graph returns the translation of g, or g itself if it was never translated.
func (c *Cloner) Graph(g ir.GraphID) ir.GraphID {
	if ng, ok := c.table.Graph(g); ok {
		return ng
	}
	return g
}

// Created returns how many graphs and nodes this Cloner has created across
// all requests. Unlike Table, it leaves out the parameter replacements
// seeded by Inline and the source remapped onto the target.
func (c *Cloner) Created() (graphs, nodes int) {
	return c.graphsCreated, c.nodesCreated
}

// Table exposes the translations recorded so far. Callers must not retain it
// across further requests if they need a snapshot.
func (c *Cloner) Table() *Table {
	return c.table
}

// Module returns the module the Cloner writes into.
func (c *Cloner) Module() *ir.Module {
	return c.m
}
