package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/anfir/internal/ir"
)

// RecursionWarning reports a set of graphs that reference each other.
//
// Recursion is legal in the IR; the clone engine terminates on it. The report
// exists so tools can show which graphs will be cloned as a unit.
type RecursionWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["f", "g", "f"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // always "info"
}

// AnalyzeRecursion finds self and mutual recursion among the graphs reachable
// from roots.
//
// The algorithm:
//  1. Build graph → referenced graphs from the constants each body reads
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-reference
//
// Graphs are visited in root order and edges in first-reference order, so the
// result is deterministic. Graphs without output contribute no edges.
func AnalyzeRecursion(m *ir.Module, roots []ir.GraphID) []RecursionWarning {
	refs := buildReferenceGraph(m, roots)

	var warnings []RecursionWarning
	for _, scc := range tarjanSCC(refs) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], refs)) {
			warnings = append(warnings, sccToWarning(m, scc, refs))
		}
	}
	return warnings
}

// referenceGraph maps a graph to the graphs its body references, plus the
// order graphs were discovered in.
type referenceGraph struct {
	edges map[ir.GraphID][]ir.GraphID
	order []ir.GraphID
}

func buildReferenceGraph(m *ir.Module, roots []ir.GraphID) referenceGraph {
	rg := referenceGraph{edges: make(map[ir.GraphID][]ir.GraphID)}
	queue := make([]ir.GraphID, 0, len(roots))
	for _, g := range roots {
		if _, seen := rg.edges[g]; seen || !m.HasGraph(g) {
			continue
		}
		rg.edges[g] = nil
		rg.order = append(rg.order, g)
		queue = append(queue, g)
	}

	for len(queue) > 0 {
		g := queue[0]
		queue = queue[1:]

		// Incoming: a nested graph's body belongs to that graph, not to g.
		nodes, err := m.GraphNodes(g, ir.SuccIncoming)
		if err != nil {
			continue
		}
		var targets []ir.GraphID
		dup := make(map[ir.GraphID]bool)
		for _, n := range nodes {
			ref, ok := m.GraphConstant(n)
			if !ok || dup[ref] {
				continue
			}
			dup[ref] = true
			targets = append(targets, ref)
			if _, seen := rg.edges[ref]; !seen {
				rg.edges[ref] = nil
				rg.order = append(rg.order, ref)
				queue = append(queue, ref)
			}
		}
		rg.edges[g] = targets
	}
	return rg
}

// hasSelfLoop checks if a graph references itself.
func hasSelfLoop(g ir.GraphID, rg referenceGraph) bool {
	for _, next := range rg.edges[g] {
		if next == g {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
func tarjanSCC(rg referenceGraph) [][]ir.GraphID {
	var (
		index   = 0
		stack   []ir.GraphID
		indices = make(map[ir.GraphID]int)
		lowlink = make(map[ir.GraphID]int)
		onStack = make(map[ir.GraphID]bool)
		sccs    [][]ir.GraphID
	)

	var strongConnect func(ir.GraphID)
	strongConnect = func(v ir.GraphID) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range rg.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack and emit the SCC
		if lowlink[v] == indices[v] {
			var scc []ir.GraphID
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, g := range rg.order {
		if _, visited := indices[g]; !visited {
			strongConnect(g)
		}
	}
	return sccs
}

func sccToWarning(m *ir.Module, scc []ir.GraphID, rg referenceGraph) RecursionWarning {
	if len(scc) == 1 {
		name := graphLabel(m, scc[0])
		return RecursionWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("Self-recursive graph: %s → %s", name, name),
			Level:   "info",
		}
	}

	ids := reconstructCyclePath(scc, rg)
	path := make([]string, len(ids))
	for i, g := range ids {
		path[i] = graphLabel(m, g)
	}
	return RecursionWarning{
		Path:    path,
		Message: fmt.Sprintf("Mutually recursive graphs: %s", strings.Join(path, " → ")),
		Level:   "info",
	}
}

// reconstructCyclePath builds a cycle path through an SCC, starting at the
// member discovered first and following edges until it returns there.
func reconstructCyclePath(scc []ir.GraphID, rg referenceGraph) []ir.GraphID {
	if len(scc) == 0 {
		return nil
	}

	member := make(map[ir.GraphID]bool, len(scc))
	for _, g := range scc {
		member[g] = true
	}
	var start ir.GraphID
	for _, g := range rg.order {
		if member[g] {
			start = g
			break
		}
	}

	current := start
	path := []ir.GraphID{current}
	visited := make(map[ir.GraphID]bool)
	for {
		visited[current] = true

		var next ir.GraphID
		for _, w := range rg.edges[current] {
			if member[w] && (!visited[w] || w == start) {
				next = w
				break
			}
		}
		if !next.IsValid() {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
