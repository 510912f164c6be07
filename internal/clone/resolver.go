package clone

import (
	"log/slog"

	"github.com/roach88/anfir/internal/ir"
)

// GraphSet is an insertion-ordered set of graphs.
type GraphSet struct {
	order   []ir.GraphID
	members map[ir.GraphID]struct{}
}

// NewGraphSet creates a set holding gs, in order, without duplicates.
func NewGraphSet(gs ...ir.GraphID) *GraphSet {
	s := &GraphSet{members: make(map[ir.GraphID]struct{}, len(gs))}
	for _, g := range gs {
		s.Add(g)
	}
	return s
}

// Add inserts g and reports whether it was new.
func (s *GraphSet) Add(g ir.GraphID) bool {
	if _, ok := s.members[g]; ok {
		return false
	}
	s.members[g] = struct{}{}
	s.order = append(s.order, g)
	return true
}

// Has reports whether g is in the set.
func (s *GraphSet) Has(g ir.GraphID) bool {
	_, ok := s.members[g]
	return ok
}

// Len returns the number of graphs in the set.
func (s *GraphSet) Len() int { return len(s.order) }

// Graphs returns the members in insertion order.
func (s *GraphSet) Graphs() []ir.GraphID {
	out := make([]ir.GraphID, len(s.order))
	copy(out, s.order)
	return out
}

// ResolveScope computes the set of graphs that must be cloned together with
// roots.
//
// Starting from roots, every graph held by a constant that is Deep-reachable
// from a member is a candidate. With total, every candidate joins the set.
// Otherwise a candidate joins when it captures the scope being cloned: some
// apply node it owns, or its output, reads a node owned by a member, or a
// constant holding a member that itself joined by capture. Calling a root
// is not capture, so closed graphs that call back into a root stay shared.
// Passes repeat until one adds nothing, so a closure that only calls another
// captured closure is picked up too.
//
// Every root must have an output; so must every graph the walk reaches.
func ResolveScope(m *ir.Module, roots []ir.GraphID, total bool) (*GraphSet, error) {
	return resolveScope(m, roots, total, slog.Default())
}

func resolveScope(m *ir.Module, roots []ir.GraphID, total bool, logger *slog.Logger) (*GraphSet, error) {
	for _, g := range roots {
		if _, err := m.Output(g); err != nil {
			return nil, err
		}
	}
	set := NewGraphSet(roots...)
	captured := make(map[ir.GraphID]bool)

	for pass := 1; ; pass++ {
		candidates, err := collectCandidates(m, set)
		if err != nil {
			return nil, err
		}

		added := 0
		for _, g := range candidates {
			if set.Has(g) {
				continue
			}
			if !total {
				captures, err := capturesScope(m, g, set, captured)
				if err != nil {
					return nil, err
				}
				if !captures {
					continue
				}
				captured[g] = true
			}
			set.Add(g)
			added++
		}

		logger.Debug("scope pass complete",
			"pass", pass,
			"added", added,
			"scope", set.Len(),
			"total", total,
		)
		if added == 0 {
			return set, nil
		}
	}
}

// collectCandidates lists, in discovery order, the graphs held by constants
// Deep-reachable from members of set that are not members yet.
func collectCandidates(m *ir.Module, set *GraphSet) ([]ir.GraphID, error) {
	var out []ir.GraphID
	seen := make(map[ir.GraphID]bool)
	for _, g := range set.Graphs() {
		for n, err := range m.DFS(mustOutput(m, g), ir.SuccDeep) {
			if err != nil {
				return nil, err
			}
			ref, ok := m.GraphConstant(n)
			if !ok || set.Has(ref) || seen[ref] {
				continue
			}
			if _, err := m.Output(ref); err != nil {
				return nil, err
			}
			seen[ref] = true
			out = append(out, ref)
		}
	}
	return out, nil
}

// capturesScope reports whether g reads the scope formed by set. Graph
// constants count only for members in captured.
func capturesScope(m *ir.Module, g ir.GraphID, set *GraphSet, captured map[ir.GraphID]bool) (bool, error) {
	out, err := m.Output(g)
	if err != nil {
		return false, err
	}
	inScope := func(n ir.NodeID) bool {
		if ref, ok := m.GraphConstant(n); ok {
			return captured[ref]
		}
		owner := m.Owner(n)
		return owner.IsValid() && set.Has(owner)
	}

	if inScope(out) {
		return true, nil
	}
	// Deep: g's own nodes may be read only by its closures.
	for n, err := range m.DFS(out, ir.SuccDeep) {
		if err != nil {
			return false, err
		}
		if m.Kind(n) != ir.KindApply || m.Owner(n) != g {
			continue
		}
		for _, in := range m.Inputs(n) {
			if inScope(in) {
				return true, nil
			}
		}
	}
	return false, nil
}

// mustOutput returns the output of a graph already checked by the resolver.
func mustOutput(m *ir.Module, g ir.GraphID) ir.NodeID {
	out, _ := m.Output(g)
	return out
}
