// Package debug looks up IR entities by their debug names.
package debug

import (
	"fmt"

	"github.com/roach88/anfir/internal/ir"
)

// Index maps debug names to the nodes and graphs reachable from a graph.
//
// The walk starts at the graph's output and follows succ. Every named node it
// visits is indexed, and so is every named graph held by a visited constant,
// along with that graph's parameters (which no walk reaches unless they are
// used). With ir.SuccIncoming a nested closure is indexed by name but its
// private bindings are not.
//
// When two entities share a name the first one visited wins.
type Index struct {
	nodes  map[string]ir.NodeID
	graphs map[string]ir.GraphID
}

// NewIndex walks g with succ and indexes what it finds. g itself is indexed
// under its own name.
func NewIndex(m *ir.Module, g ir.GraphID, succ ir.Successors) (*Index, error) {
	idx := &Index{
		nodes:  make(map[string]ir.NodeID),
		graphs: make(map[string]ir.GraphID),
	}
	out, err := m.Output(g)
	if err != nil {
		return nil, err
	}
	idx.addGraph(m, g)

	for n, err := range m.DFS(out, succ) {
		if err != nil {
			return nil, err
		}
		idx.addNode(n, m.NodeName(n))
		if ref, ok := m.GraphConstant(n); ok {
			idx.addGraph(m, ref)
		}
	}
	return idx, nil
}

func (idx *Index) addGraph(m *ir.Module, g ir.GraphID) {
	if name := m.GraphName(g); name != "" {
		if _, dup := idx.graphs[name]; !dup {
			idx.graphs[name] = g
		}
	}
	for _, p := range m.Params(g) {
		idx.addNode(p, m.NodeName(p))
	}
}

func (idx *Index) addNode(n ir.NodeID, name string) {
	if name == "" {
		return
	}
	if _, dup := idx.nodes[name]; !dup {
		idx.nodes[name] = n
	}
}

// Node returns the node indexed under name.
func (idx *Index) Node(name string) (ir.NodeID, bool) {
	n, ok := idx.nodes[name]
	return n, ok
}

// Graph returns the graph indexed under name.
func (idx *Index) Graph(name string) (ir.GraphID, bool) {
	g, ok := idx.graphs[name]
	return g, ok
}

// Entity is the result of a Lookup: exactly one of Node and Graph is set.
type Entity struct {
	Node  ir.NodeID
	Graph ir.GraphID
}

// Lookup returns the entity indexed under name, preferring nodes. It fails
// for unknown names.
func (idx *Index) Lookup(name string) (Entity, error) {
	if n, ok := idx.nodes[name]; ok {
		return Entity{Node: n}, nil
	}
	if g, ok := idx.graphs[name]; ok {
		return Entity{Graph: g}, nil
	}
	return Entity{}, fmt.Errorf("debug index: no entity named %q", name)
}

// NodeNames returns the number of indexed node names.
func (idx *Index) NodeNames() int { return len(idx.nodes) }

// GraphNames returns the number of indexed graph names.
func (idx *Index) GraphNames() int { return len(idx.graphs) }
