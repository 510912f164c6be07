package ir

import (
	"fmt"
	"slices"
)

// NodeKind is the variant tag of a node.
type NodeKind uint8

const (
	// KindInvalid is returned for identifiers the module does not know.
	KindInvalid NodeKind = iota
	// KindApply is a call: operator plus ordered operands.
	KindApply
	// KindParameter is a formal argument of its owning graph.
	KindParameter
	// KindConstant wraps a Value and has no owner.
	KindConstant
)

func (k NodeKind) String() string {
	switch k {
	case KindApply:
		return "apply"
	case KindParameter:
		return "parameter"
	case KindConstant:
		return "constant"
	default:
		return "invalid"
	}
}

type nodeData struct {
	kind   NodeKind
	owner  GraphID
	inputs []NodeID // inputs[0] is the operator
	value  Value
	name   string
}

type graphData struct {
	name   string
	params []NodeID
	output NodeID
}

// Module is the arena owning every graph and node of a program, originals and
// clones alike. Identifiers index into the arena; they are never reused.
//
// INVARIANTS:
//   - Apply and Parameter nodes have exactly one owner, fixed at creation
//   - Constant nodes have no owner
//   - Apply inputs exist before the apply node, so node edges are acyclic;
//     cycles only go through graph references held by constants
//
// A Module is not safe for concurrent mutation.
type Module struct {
	graphs []graphData
	nodes  []nodeData
}

// NewModule creates an empty module.
func NewModule() *Module {
	return &Module{}
}

// NumGraphs returns the number of graphs allocated so far.
func (m *Module) NumGraphs() int { return len(m.graphs) }

// NumNodes returns the number of nodes allocated so far.
func (m *Module) NumNodes() int { return len(m.nodes) }

// HasGraph reports whether g was allocated by this module.
func (m *Module) HasGraph(g GraphID) bool {
	return g.IsValid() && int(g) <= len(m.graphs)
}

// HasNode reports whether n was allocated by this module.
func (m *Module) HasNode(n NodeID) bool {
	return n.IsValid() && int(n) <= len(m.nodes)
}

func (m *Module) graph(g GraphID) *graphData { return &m.graphs[g-1] }
func (m *Module) node(n NodeID) *nodeData    { return &m.nodes[n-1] }

// NewGraph allocates a graph with no parameters and no output.
func (m *Module) NewGraph(name string) GraphID {
	m.graphs = append(m.graphs, graphData{name: name})
	return GraphID(len(m.graphs))
}

// AddParameter appends a fresh parameter owned by g.
func (m *Module) AddParameter(g GraphID, name string) (NodeID, error) {
	if !m.HasGraph(g) {
		return NoNodeID, unknownGraphError(g)
	}
	n := m.alloc(nodeData{kind: KindParameter, owner: g, name: name})
	gd := m.graph(g)
	gd.params = append(gd.params, n)
	return n, nil
}

// NewApply allocates an apply node owned by owner. The operator and every
// operand must already exist.
func (m *Module) NewApply(owner GraphID, operator NodeID, operands ...NodeID) (NodeID, error) {
	if !m.HasGraph(owner) {
		return NoNodeID, unknownGraphError(owner)
	}
	if !operator.IsValid() {
		return NoNodeID, &IRError{Code: ErrCodeInvalidInput, Message: "apply requires an operator", Graph: owner}
	}
	inputs := make([]NodeID, 0, len(operands)+1)
	inputs = append(inputs, operator)
	inputs = append(inputs, operands...)
	for _, in := range inputs {
		if !m.HasNode(in) {
			return NoNodeID, unknownNodeError(in)
		}
	}
	return m.alloc(nodeData{kind: KindApply, owner: owner, inputs: inputs}), nil
}

// NewConstant allocates an unowned constant. A graph reference must name a
// graph of this module.
func (m *Module) NewConstant(v Value) (NodeID, error) {
	switch v.Kind() {
	case ValueLiteral, ValuePrimitive:
	case ValueGraph:
		if g, _ := v.Graph(); !m.HasGraph(g) {
			return NoNodeID, unknownGraphError(g)
		}
	default:
		return NoNodeID, &IRError{Code: ErrCodeInvalidInput, Message: "constant requires a value"}
	}
	return m.alloc(nodeData{kind: KindConstant, value: v}), nil
}

// SetOutput sets the output of g. The output may be owned by any graph (a
// graph may return a free variable) or be a constant.
func (m *Module) SetOutput(g GraphID, n NodeID) error {
	if !m.HasGraph(g) {
		return unknownGraphError(g)
	}
	if !m.HasNode(n) {
		return unknownNodeError(n)
	}
	m.graph(g).output = n
	return nil
}

// SetNodeName attaches a debug name to n. Names carry no semantics.
func (m *Module) SetNodeName(n NodeID, name string) {
	if m.HasNode(n) {
		m.node(n).name = name
	}
}

func (m *Module) alloc(nd nodeData) NodeID {
	m.nodes = append(m.nodes, nd)
	return NodeID(len(m.nodes))
}

// Kind returns the variant of n, or KindInvalid for unknown nodes.
func (m *Module) Kind(n NodeID) NodeKind {
	if !m.HasNode(n) {
		return KindInvalid
	}
	return m.node(n).kind
}

// Owner returns the graph owning n; NoGraphID for constants.
func (m *Module) Owner(n NodeID) GraphID {
	if !m.HasNode(n) {
		return NoGraphID
	}
	return m.node(n).owner
}

// Inputs returns the operator followed by the operands of an apply node.
// The returned slice must not be modified.
func (m *Module) Inputs(n NodeID) []NodeID {
	if !m.HasNode(n) {
		return nil
	}
	return m.node(n).inputs
}

// Operator returns the operator of an apply node.
func (m *Module) Operator(n NodeID) NodeID {
	if in := m.Inputs(n); len(in) > 0 {
		return in[0]
	}
	return NoNodeID
}

// Operands returns the operands of an apply node.
func (m *Module) Operands(n NodeID) []NodeID {
	if in := m.Inputs(n); len(in) > 0 {
		return in[1:]
	}
	return nil
}

// Value returns the payload of a constant node.
func (m *Module) Value(n NodeID) (Value, bool) {
	if m.Kind(n) != KindConstant {
		return Value{}, false
	}
	return m.node(n).value, true
}

// GraphConstant returns the graph wrapped by n when n is a constant holding a
// graph reference.
func (m *Module) GraphConstant(n NodeID) (GraphID, bool) {
	v, ok := m.Value(n)
	if !ok {
		return NoGraphID, false
	}
	return v.Graph()
}

// NodeName returns the debug name of n.
func (m *Module) NodeName(n NodeID) string {
	if !m.HasNode(n) {
		return ""
	}
	return m.node(n).name
}

// GraphName returns the debug name of g.
func (m *Module) GraphName(g GraphID) string {
	if !m.HasGraph(g) {
		return ""
	}
	return m.graph(g).name
}

// Params returns a copy of g's parameter list.
func (m *Module) Params(g GraphID) []NodeID {
	if !m.HasGraph(g) {
		return nil
	}
	return slices.Clone(m.graph(g).params)
}

// Output returns g's output node. A graph without output is an invalid
// precondition for every traversal and clone request.
func (m *Module) Output(g GraphID) (NodeID, error) {
	if !m.HasGraph(g) {
		return NoNodeID, unknownGraphError(g)
	}
	gd := m.graph(g)
	if !gd.output.IsValid() {
		return NoNodeID, NewMissingOutputError(g, gd.name)
	}
	return gd.output, nil
}

// Graphs returns every graph of the module in allocation order.
func (m *Module) Graphs() []GraphID {
	out := make([]GraphID, len(m.graphs))
	for i := range m.graphs {
		out[i] = GraphID(i + 1)
	}
	return out
}

// Describe renders n for log lines and error messages.
func (m *Module) Describe(n NodeID) string {
	switch m.Kind(n) {
	case KindConstant:
		return fmt.Sprintf("%s[const %s]", n, m.node(n).value)
	case KindInvalid:
		return fmt.Sprintf("%s[invalid]", n)
	}
	nd := m.node(n)
	if nd.name != "" {
		return fmt.Sprintf("%s[%s %s in %s]", n, nd.kind, nd.name, nd.owner)
	}
	return fmt.Sprintf("%s[%s in %s]", n, nd.kind, nd.owner)
}
