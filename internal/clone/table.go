package clone

import "github.com/roach88/anfir/internal/ir"

// GraphMapping records that From was translated to To.
type GraphMapping struct {
	From ir.GraphID `json:"from"`
	To   ir.GraphID `json:"to"`
}

// NodeMapping records that From was translated to To.
type NodeMapping struct {
	From ir.NodeID `json:"from"`
	To   ir.NodeID `json:"to"`
}

// Table is the translation table of a Cloner. It only holds real
// translations: entities mapped to themselves are never recorded, since
// lookups fall back to identity.
//
// Mappings are kept in insertion order so journals and logs are
// deterministic. A seed that overwrites an earlier entry keeps the original
// position.
type Table struct {
	graphs     map[ir.GraphID]ir.GraphID
	graphOrder []ir.GraphID
	nodes      map[ir.NodeID]ir.NodeID
	nodeOrder  []ir.NodeID
}

func newTable() *Table {
	return &Table{
		graphs: make(map[ir.GraphID]ir.GraphID),
		nodes:  make(map[ir.NodeID]ir.NodeID),
	}
}

// Graph returns the translation of g, if one was recorded.
func (t *Table) Graph(g ir.GraphID) (ir.GraphID, bool) {
	to, ok := t.graphs[g]
	return to, ok
}

// Node returns the translation of n, if one was recorded.
func (t *Table) Node(n ir.NodeID) (ir.NodeID, bool) {
	to, ok := t.nodes[n]
	return to, ok
}

// Graphs returns every graph mapping in insertion order.
func (t *Table) Graphs() []GraphMapping {
	out := make([]GraphMapping, len(t.graphOrder))
	for i, from := range t.graphOrder {
		out[i] = GraphMapping{From: from, To: t.graphs[from]}
	}
	return out
}

// Nodes returns every node mapping in insertion order.
func (t *Table) Nodes() []NodeMapping {
	out := make([]NodeMapping, len(t.nodeOrder))
	for i, from := range t.nodeOrder {
		out[i] = NodeMapping{From: from, To: t.nodes[from]}
	}
	return out
}

// Len returns the number of graph and node mappings.
func (t *Table) Len() (graphs, nodes int) {
	return len(t.graphOrder), len(t.nodeOrder)
}

func (t *Table) setGraph(from, to ir.GraphID) {
	if _, ok := t.graphs[from]; !ok {
		t.graphOrder = append(t.graphOrder, from)
	}
	t.graphs[from] = to
}

func (t *Table) setNode(from, to ir.NodeID) {
	if _, ok := t.nodes[from]; !ok {
		t.nodeOrder = append(t.nodeOrder, from)
	}
	t.nodes[from] = to
}
