package compiler

import (
	"fmt"

	"github.com/roach88/anfir/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrUnknownGraph      = "E200" // graph does not belong to the module
	ErrMissingOutput     = "E201" // graph has no output node
	ErrParameterOwner    = "E202" // parameter list holds a node the graph does not own
	ErrDuplicateParam    = "E203" // same parameter listed twice
	ErrApplyOwner        = "E204" // apply node without owner
	ErrApplyNoOperator   = "E205" // apply node without operator
	ErrConstantHasOwner  = "E206" // constant node with an owner
	ErrDanglingReference = "E207" // constant references an unknown graph
)

// ValidationError represents an IR well-formedness error.
type ValidationError struct {
	Graph   string `json:"graph"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Graph != "" {
		return fmt.Sprintf("[%s] %s: %s: %s", e.Code, e.Graph, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks g and every graph reachable from it through constants.
// Returns all errors found (does not fail-fast). Graphs are visited in
// discovery order so the report is deterministic.
func Validate(m *ir.Module, g ir.GraphID) []ValidationError {
	if !m.HasGraph(g) {
		return []ValidationError{{
			Field:   "graph",
			Message: fmt.Sprintf("unknown graph %s", g),
			Code:    ErrUnknownGraph,
		}}
	}

	var errs []ValidationError
	seen := map[ir.GraphID]bool{g: true}
	queue := []ir.GraphID{g}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		graphErrs, refs := validateGraph(m, cur)
		errs = append(errs, graphErrs...)
		for _, ref := range refs {
			if !seen[ref] {
				seen[ref] = true
				queue = append(queue, ref)
			}
		}
	}
	return errs
}

// validateGraph checks one graph and returns the graphs its body references.
func validateGraph(m *ir.Module, g ir.GraphID) ([]ValidationError, []ir.GraphID) {
	var errs []ValidationError
	name := graphLabel(m, g)

	params := m.Params(g)
	seenParams := make(map[ir.NodeID]bool, len(params))
	for i, p := range params {
		if seenParams[p] {
			errs = append(errs, ValidationError{
				Graph:   name,
				Field:   fmt.Sprintf("params[%d]", i),
				Message: fmt.Sprintf("parameter %s listed twice", m.Describe(p)),
				Code:    ErrDuplicateParam,
			})
		}
		seenParams[p] = true
		if m.Kind(p) != ir.KindParameter || m.Owner(p) != g {
			errs = append(errs, ValidationError{
				Graph:   name,
				Field:   fmt.Sprintf("params[%d]", i),
				Message: fmt.Sprintf("%s is not a parameter owned by this graph", m.Describe(p)),
				Code:    ErrParameterOwner,
			})
		}
	}

	out, err := m.Output(g)
	if err != nil {
		errs = append(errs, ValidationError{
			Graph:   name,
			Field:   "return",
			Message: "graph has no output node",
			Code:    ErrMissingOutput,
		})
		return errs, nil
	}

	// Incoming keeps the check local to g; nested graphs are checked on their own.
	nodes, err := m.Reachable(out, ir.SuccIncoming)
	if err != nil {
		errs = append(errs, ValidationError{
			Graph:   name,
			Field:   "body",
			Message: err.Error(),
			Code:    ErrDanglingReference,
		})
		return errs, nil
	}

	var refs []ir.GraphID
	for _, n := range nodes {
		switch m.Kind(n) {
		case ir.KindApply:
			if !m.Owner(n).IsValid() {
				errs = append(errs, ValidationError{
					Graph:   name,
					Field:   "body",
					Message: fmt.Sprintf("%s has no owner", m.Describe(n)),
					Code:    ErrApplyOwner,
				})
			}
			if !m.Operator(n).IsValid() {
				errs = append(errs, ValidationError{
					Graph:   name,
					Field:   "body",
					Message: fmt.Sprintf("%s has no operator", m.Describe(n)),
					Code:    ErrApplyNoOperator,
				})
			}
		case ir.KindConstant:
			if m.Owner(n).IsValid() {
				errs = append(errs, ValidationError{
					Graph:   name,
					Field:   "body",
					Message: fmt.Sprintf("%s is owned by %s", m.Describe(n), m.Owner(n)),
					Code:    ErrConstantHasOwner,
				})
			}
			if ref, ok := m.GraphConstant(n); ok {
				if !m.HasGraph(ref) {
					errs = append(errs, ValidationError{
						Graph:   name,
						Field:   "body",
						Message: fmt.Sprintf("%s references unknown graph %s", m.Describe(n), ref),
						Code:    ErrDanglingReference,
					})
					continue
				}
				refs = append(refs, ref)
			}
		}
	}
	return errs, refs
}

func graphLabel(m *ir.Module, g ir.GraphID) string {
	if name := m.GraphName(g); name != "" {
		return name
	}
	return g.String()
}
