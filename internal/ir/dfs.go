package ir

import (
	"iter"
	"slices"
)

// Successors returns the nodes a walk continues to from n.
type Successors func(m *Module, n NodeID) ([]NodeID, error)

// SuccIncoming follows the operator and operands of apply nodes. It never
// enters the body of a graph held by a constant, so a walk stays within the
// scope it started in (plus the free variables that scope reads).
func SuccIncoming(m *Module, n NodeID) ([]NodeID, error) {
	if m.Kind(n) != KindApply {
		return nil, nil
	}
	return m.Inputs(n), nil
}

// SuccDeep follows the operator and operands of apply nodes and, for every
// one of them that is a constant holding a graph, that graph's output. A walk
// with SuccDeep therefore covers a function and every closure it contains.
//
// Parameters and constants have no successors: a graph body is only entered
// through the apply node that references it.
func SuccDeep(m *Module, n NodeID) ([]NodeID, error) {
	if m.Kind(n) != KindApply {
		return nil, nil
	}
	inputs := m.Inputs(n)
	succ := slices.Clone(inputs)
	for _, in := range inputs {
		g, ok := m.GraphConstant(in)
		if !ok {
			continue
		}
		out, err := m.Output(g)
		if err != nil {
			return nil, err
		}
		succ = append(succ, out)
	}
	return succ, nil
}

// DFS walks every node reachable from root through succ, yielding each node
// once in depth-first pre-order. The walk is lazy: breaking out of the range
// loop stops it. Cycles terminate through the visited set.
//
// An error (unknown root, a graph without output) is yielded once with
// NoNodeID and ends the walk.
func (m *Module) DFS(root NodeID, succ Successors) iter.Seq2[NodeID, error] {
	return func(yield func(NodeID, error) bool) {
		if !m.HasNode(root) {
			yield(NoNodeID, unknownNodeError(root))
			return
		}
		seen := map[NodeID]struct{}{root: {}}
		stack := []NodeID{root}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(n, nil) {
				return
			}
			next, err := succ(m, n)
			if err != nil {
				yield(NoNodeID, err)
				return
			}
			// Push in reverse so the first input is visited first.
			for i := len(next) - 1; i >= 0; i-- {
				s := next[i]
				if _, ok := seen[s]; ok {
					continue
				}
				seen[s] = struct{}{}
				stack = append(stack, s)
			}
		}
	}
}

// Reachable collects the walk from root into a slice, in visit order.
func (m *Module) Reachable(root NodeID, succ Successors) ([]NodeID, error) {
	var out []NodeID
	for n, err := range m.DFS(root, succ) {
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// ReachableSet collects the walk from root into a set.
func (m *Module) ReachableSet(root NodeID, succ Successors) (map[NodeID]struct{}, error) {
	set := make(map[NodeID]struct{})
	for n, err := range m.DFS(root, succ) {
		if err != nil {
			return nil, err
		}
		set[n] = struct{}{}
	}
	return set, nil
}

// GraphNodes walks from g's output. It fails fast when g has no output.
func (m *Module) GraphNodes(g GraphID, succ Successors) ([]NodeID, error) {
	out, err := m.Output(g)
	if err != nil {
		return nil, err
	}
	return m.Reachable(out, succ)
}
