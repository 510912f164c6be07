package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a clone or inline request and what must hold afterwards.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs lists CUE files compiled together into one module. They must
	// share a directory.
	Specs []string `yaml:"specs"`

	// Request is the operation performed on the compiled module.
	Request Request `yaml:"request"`

	// Assertions validate the translations and the listing.
	Assertions []Assertion `yaml:"assertions"`
}

// Request selects exactly one of Clone and Inline.
type Request struct {
	// Clone lists the qualified names of the root graphs to clone.
	Clone []string `yaml:"clone,omitempty"`

	// Inline splices one graph's body into another.
	Inline *InlineRequest `yaml:"inline,omitempty"`

	CloneConstants bool `yaml:"clone_constants,omitempty"`
	Total          bool `yaml:"total,omitempty"`
}

// InlineRequest names the graphs of an inline request.
type InlineRequest struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`

	// Args holds one replacement per source parameter: integers, booleans
	// and null become literal constants, strings are "graph:node" references.
	Args []any `yaml:"args"`

	RemapSource bool `yaml:"remap_source,omitempty"`
}

// Assertion validates the outcome of a request.
type Assertion struct {
	// Type selects the check; see the package documentation.
	Type string `yaml:"type"`

	// Graphs lists qualified graph names (used by same, distinct).
	Graphs []string `yaml:"graphs,omitempty"`

	// Graph is a qualified graph name (used by disjoint, shared_constants,
	// owned_by).
	Graph string `yaml:"graph,omitempty"`

	// Node is a "graph:node" reference (used by owned_by).
	Node string `yaml:"node,omitempty"`

	// Text must appear in the listing (used by contains).
	Text string `yaml:"text,omitempty"`

	// GraphCount and NodeCount are the expected journal sizes (used by
	// journal).
	GraphCount *int `yaml:"graph_count,omitempty"`
	NodeCount  *int `yaml:"node_count,omitempty"`
}

// Assertion type constants.
const (
	AssertSame            = "same"
	AssertDistinct        = "distinct"
	AssertDisjoint        = "disjoint"
	AssertSharedConstants = "shared_constants"
	AssertOwnedBy         = "owned_by"
	AssertContains        = "contains"
	AssertJournal         = "journal"
)

// LoadScenario reads and parses a scenario YAML file. Spec paths are
// resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving relative spec paths against basePath.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve spec paths BEFORE validation
	for i, specPath := range scenario.Specs {
		if !filepath.IsAbs(specPath) && basePath != "" {
			scenario.Specs[i] = filepath.Join(basePath, specPath)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Specs) == 0 {
		return fmt.Errorf("specs list is required and must be non-empty")
	}

	for _, specPath := range s.Specs {
		if _, err := os.Stat(specPath); os.IsNotExist(err) {
			return fmt.Errorf("spec file not found: %s", specPath)
		}
	}

	if err := validateRequest(&s.Request); err != nil {
		return err
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateRequest(r *Request) error {
	switch {
	case len(r.Clone) > 0 && r.Inline != nil:
		return fmt.Errorf("request: clone and inline are mutually exclusive")
	case len(r.Clone) == 0 && r.Inline == nil:
		return fmt.Errorf("request: one of clone or inline is required")
	case r.Inline != nil:
		if r.Inline.Source == "" {
			return fmt.Errorf("request.inline: source is required")
		}
		if r.Inline.Target == "" {
			return fmt.Errorf("request.inline: target is required")
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSame, AssertDistinct:
		if len(a.Graphs) == 0 {
			return fmt.Errorf("assertions[%d]: graphs list is required for %s", index, a.Type)
		}
	case AssertDisjoint, AssertSharedConstants:
		if a.Graph == "" {
			return fmt.Errorf("assertions[%d]: graph is required for %s", index, a.Type)
		}
	case AssertOwnedBy:
		if a.Node == "" || a.Graph == "" {
			return fmt.Errorf("assertions[%d]: node and graph are required for owned_by", index)
		}
	case AssertContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for contains", index)
		}
	case AssertJournal:
		if a.GraphCount == nil && a.NodeCount == nil {
			return fmt.Errorf("assertions[%d]: graph_count or node_count is required for journal", index)
		}
		if (a.GraphCount != nil && *a.GraphCount < 0) || (a.NodeCount != nil && *a.NodeCount < 0) {
			return fmt.Errorf("assertions[%d]: counts must be non-negative for journal", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
