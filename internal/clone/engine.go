package clone

import (
	"github.com/roach88/anfir/internal/ir"
)

// engine performs one clone request over a resolved scope.
//
// Translation is memoized through the table: an entity's translation is
// recorded before anything it refers to is translated, so recursive graphs
// terminate. Node translation only recurses along apply inputs, which are
// acyclic. Graph bodies are filled from a work-list instead of recursively,
// so the depth of the call graph never reaches the Go stack.
type engine struct {
	m              *ir.Module
	scope          *GraphSet
	cloneConstants bool
	table          *Table

	// Inline requests: nodes owned by source are cloned into target, and
	// source itself is never given a fresh graph.
	source ir.GraphID
	target ir.GraphID

	pending []pendingGraph

	graphsCreated int
	nodesCreated  int
}

type pendingGraph struct {
	orig, clone ir.GraphID
}

func newEngine(m *ir.Module, scope *GraphSet, cloneConstants bool, table *Table) *engine {
	return &engine{
		m:              m,
		scope:          scope,
		cloneConstants: cloneConstants,
		table:          table,
	}
}

// inlining configures the engine to splice source's body into target.
func (e *engine) inlining(source, target ir.GraphID) *engine {
	e.source = source
	e.target = target
	return e
}

// drain fills the body of every fresh graph created so far, including the
// ones created while filling.
func (e *engine) drain() error {
	for len(e.pending) > 0 {
		p := e.pending[0]
		e.pending = e.pending[1:]
		out, err := e.m.Output(p.orig)
		if err != nil {
			return err
		}
		newOut, err := e.node(out)
		if err != nil {
			return err
		}
		if err := e.m.SetOutput(p.clone, newOut); err != nil {
			return err
		}
	}
	return nil
}

// graph translates g. Graphs outside the scope, and the source of an inline
// request that was not remapped, translate to themselves.
func (e *engine) graph(g ir.GraphID) (ir.GraphID, error) {
	if ng, ok := e.table.Graph(g); ok {
		return ng, nil
	}
	if !e.scope.Has(g) || (e.source.IsValid() && g == e.source) {
		return g, nil
	}

	ng := e.m.NewGraph(e.m.GraphName(g))
	e.table.setGraph(g, ng)
	e.graphsCreated++

	for _, p := range e.m.Params(g) {
		if _, seeded := e.table.Node(p); seeded {
			continue
		}
		np, err := e.m.AddParameter(ng, e.m.NodeName(p))
		if err != nil {
			return ir.NoGraphID, err
		}
		e.table.setNode(p, np)
		e.nodesCreated++
	}

	e.pending = append(e.pending, pendingGraph{orig: g, clone: ng})
	return ng, nil
}

// node translates n.
func (e *engine) node(n ir.NodeID) (ir.NodeID, error) {
	if nn, ok := e.table.Node(n); ok {
		return nn, nil
	}

	switch e.m.Kind(n) {
	case ir.KindConstant:
		return e.constant(n)

	case ir.KindParameter:
		owner := e.m.Owner(n)
		if !e.scope.Has(owner) {
			return n, nil
		}
		// Creating the owner's shell records its parameters.
		if _, err := e.graph(owner); err != nil {
			return ir.NoNodeID, err
		}
		if nn, ok := e.table.Node(n); ok {
			return nn, nil
		}
		return n, nil

	case ir.KindApply:
		return e.apply(n)

	default:
		return n, nil
	}
}

func (e *engine) constant(n ir.NodeID) (ir.NodeID, error) {
	v, _ := e.m.Value(n)
	if g, ok := v.Graph(); ok {
		if !e.scope.Has(g) {
			return n, nil
		}
		ng, err := e.graph(g)
		if err != nil {
			return ir.NoNodeID, err
		}
		if ng == g {
			return n, nil
		}
		return e.newConstant(n, ir.GraphValue(ng))
	}
	if !e.cloneConstants {
		return n, nil
	}
	return e.newConstant(n, v)
}

func (e *engine) newConstant(orig ir.NodeID, v ir.Value) (ir.NodeID, error) {
	nn, err := e.m.NewConstant(v)
	if err != nil {
		return ir.NoNodeID, err
	}
	e.m.SetNodeName(nn, e.m.NodeName(orig))
	e.table.setNode(orig, nn)
	e.nodesCreated++
	return nn, nil
}

func (e *engine) apply(n ir.NodeID) (ir.NodeID, error) {
	owner := e.m.Owner(n)
	if !e.scope.Has(owner) {
		return n, nil
	}

	newOwner := e.target
	if !e.source.IsValid() || owner != e.source {
		ng, err := e.graph(owner)
		if err != nil {
			return ir.NoNodeID, err
		}
		newOwner = ng
	}

	inputs := e.m.Inputs(n)
	newInputs := make([]ir.NodeID, len(inputs))
	for i, in := range inputs {
		nn, err := e.node(in)
		if err != nil {
			return ir.NoNodeID, err
		}
		newInputs[i] = nn
	}

	nn, err := e.m.NewApply(newOwner, newInputs[0], newInputs[1:]...)
	if err != nil {
		return ir.NoNodeID, err
	}
	e.m.SetNodeName(nn, e.m.NodeName(n))
	e.table.setNode(n, nn)
	e.nodesCreated++
	return nn, nil
}
