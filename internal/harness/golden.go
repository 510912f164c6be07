package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Report renders the deterministic summary of a run compared by golden
// files: the request, the journal sizes and the listing.
func Report(scenario *Scenario, result *Result) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "scenario: %s\n", scenario.Name)
	fmt.Fprintf(&buf, "request: %s\n", describeRequest(scenario.Request))
	fmt.Fprintf(&buf, "graphs cloned: %d\n", result.GraphsCloned)
	fmt.Fprintf(&buf, "nodes cloned: %d\n", result.NodesCloned)
	buf.WriteByte('\n')
	buf.WriteString(result.Listing)
	return buf.String()
}

func describeRequest(r Request) string {
	var desc string
	if r.Inline != nil {
		desc = fmt.Sprintf("inline %s into %s", r.Inline.Source, r.Inline.Target)
		if r.Inline.RemapSource {
			desc += " (remap source)"
		}
	} else {
		desc = "clone " + strings.Join(r.Clone, ", ")
	}
	if r.CloneConstants {
		desc += " +constants"
	}
	if r.Total {
		desc += " +total"
	}
	return desc
}

// RunWithGolden executes a scenario and compares its report against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass, or an error if the
// scenario could not be executed. A report mismatch fails t via goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario, result)
	return result, nil
}

// AssertGolden compares the report of an existing result against its golden
// file without re-running the scenario.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, []byte(Report(scenario, result)))
}
