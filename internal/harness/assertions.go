package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/anfir/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes the listing to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Listing  string // Printed outcome of the request
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Listing != "" {
		fmt.Fprintf(&buf, "\nListing:\n")
		for _, line := range strings.Split(strings.TrimRight(e.Listing, "\n"), "\n") {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}

	return buf.String()
}

// AssertionContext carries what assertions inspect.
type AssertionContext struct {
	Harness *Harness
	Result  *Result
	Ctx     context.Context
}

// EvaluateAssertions runs every assertion and returns the failure messages.
// All assertions are evaluated, so one run reports every failure.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

func evaluateAssertion(a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertSame:
		return assertTranslation(actx, a, false)
	case AssertDistinct:
		return assertTranslation(actx, a, true)
	case AssertDisjoint:
		return assertShared(actx, a, false)
	case AssertSharedConstants:
		return assertShared(actx, a, true)
	case AssertOwnedBy:
		return assertOwnedBy(actx, a)
	case AssertContains:
		return assertContains(actx, a)
	case AssertJournal:
		return assertJournal(actx, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertTranslation checks that each graph was (distinct) or was not (same)
// given a fresh copy.
func assertTranslation(actx *AssertionContext, a Assertion, fresh bool) error {
	h := actx.Harness
	for _, name := range a.Graphs {
		g, err := h.graph(name)
		if err != nil {
			return err
		}
		copied := h.cloner.Graph(g) != g
		if copied != fresh {
			expected, actual := "a fresh copy", "translated to itself"
			if !fresh {
				expected, actual = "translated to itself", fmt.Sprintf("copied to %s", h.cloner.Graph(g))
			}
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("graph %s %s", name, expected),
				Actual:   actual,
				Listing:  actx.Result.Listing,
			}
		}
	}
	return nil
}

// assertShared compares the Deep closures of a graph and its translation.
// With constantsOnly, shared literal and primitive constants are allowed.
func assertShared(actx *AssertionContext, a Assertion, constantsOnly bool) error {
	h := actx.Harness
	m := h.prog.Module
	g, err := h.graph(a.Graph)
	if err != nil {
		return err
	}
	out, err := m.Output(g)
	if err != nil {
		return err
	}
	before, err := m.ReachableSet(out, ir.SuccDeep)
	if err != nil {
		return err
	}
	copyOut, err := m.Output(h.cloner.Graph(g))
	if err != nil {
		return err
	}
	after, err := m.Reachable(copyOut, ir.SuccDeep)
	if err != nil {
		return err
	}

	for _, n := range after {
		if _, shared := before[n]; !shared {
			continue
		}
		if constantsOnly {
			if _, isGraph := m.GraphConstant(n); m.Kind(n) == ir.KindConstant && !isGraph {
				continue
			}
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("copy of %s shares no %s with the original", a.Graph, sharedKind(constantsOnly)),
			Actual:   fmt.Sprintf("shares %s", m.Describe(n)),
			Listing:  actx.Result.Listing,
		}
	}
	return nil
}

func sharedKind(constantsOnly bool) string {
	if constantsOnly {
		return "node other than literal and primitive constants"
	}
	return "node"
}

// assertOwnedBy checks that the translation of a node is owned by the
// translation of a graph.
func assertOwnedBy(actx *AssertionContext, a Assertion) error {
	h := actx.Harness
	m := h.prog.Module
	n, err := h.node(a.Node)
	if err != nil {
		return err
	}
	g, err := h.graph(a.Graph)
	if err != nil {
		return err
	}

	want := h.cloner.Graph(g)
	got := m.Owner(h.cloner.Node(n))
	if got != want {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("translation of %s owned by translation of %s (%s)", a.Node, a.Graph, want),
			Actual:   fmt.Sprintf("owned by %s", got),
			Listing:  actx.Result.Listing,
		}
	}
	return nil
}

func assertContains(actx *AssertionContext, a Assertion) error {
	if !strings.Contains(actx.Result.Listing, a.Text) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("listing containing %q", a.Text),
			Actual:   "not found",
			Listing:  actx.Result.Listing,
		}
	}
	return nil
}

// assertJournal reads the session back from the store and checks its size.
func assertJournal(actx *AssertionContext, a Assertion) error {
	sess, err := actx.Harness.store.ReadSession(actx.Ctx, actx.Result.SessionID)
	if err != nil {
		return err
	}
	if a.GraphCount != nil && len(sess.Graphs) != *a.GraphCount {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d graph mappings", *a.GraphCount),
			Actual:   fmt.Sprintf("%d graph mappings", len(sess.Graphs)),
		}
	}
	if a.NodeCount != nil && len(sess.Nodes) != *a.NodeCount {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d node mappings", *a.NodeCount),
			Actual:   fmt.Sprintf("%d node mappings", len(sess.Nodes)),
		}
	}
	return nil
}
