// Package harness runs clone and inline scenarios against CUE graph specs.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: closure-clone
//	description: "Cloning f duplicates the closure that captures it"
//	specs:
//	  - specs/closure.cue
//	request:
//	  clone: [f]
//	  clone_constants: false
//	  total: false
//	assertions:
//	  - type: distinct
//	    graphs: [f, f.j]
//	  - type: owned_by
//	    node: "f.j:a"
//	    graph: f.j
//	  - type: journal
//	    graph_count: 2
//	    node_count: 7
//
// An inline request names a source, a target and one argument per source
// parameter. Integer, boolean and null arguments become fresh literal
// constants; a string argument is a node reference "graph:node".
//
//	request:
//	  inline:
//	    source: f
//	    target: target
//	    args: [2, 5]
//	    remap_source: false
//
// After an inline request the harness installs the spliced body as the
// target's output, as an inliner replacing a call site would.
//
// # Assertion Types
//
//   - same: every listed graph translates to itself
//   - distinct: every listed graph was given a fresh copy
//   - disjoint: the original and the copy of graph share no Deep-reachable node
//   - shared_constants: they share nothing but literal and primitive constants
//   - owned_by: the translation of node is owned by the translation of graph
//   - contains: the printed listing contains text
//   - journal: the journaled session recorded graph_count and node_count mappings
//
// # Deterministic Testing
//
// Each scenario runs against its own module and an in-memory journal, with
// sequential session IDs and a logical clock, so listings and journals are
// identical across runs. RunWithGolden compares the report against
// testdata/golden/<name>.golden.
package harness
