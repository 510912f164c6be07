// Package testutil provides shared fixtures for tests: CUE sources for the
// canonical cloning scenarios and deterministic ID generation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/anfir/internal/compiler"
	"github.com/roach88/anfir/internal/ir"
)

// SumOfSquares is f(x, y) = x*x + y*y with named intermediate bindings.
const SumOfSquares = `
graph: f: {
	params: ["x", "y"]
	body: {
		a: ["mul", "x", "x"]
		b: ["mul", "y", "y"]
		c: ["add", "a", "b"]
	}
	return: "c"
}
`

// Closure is f(x, y) with a nested j(z) that reads x and y.
const Closure = `
graph: f: {
	params: ["x", "y"]
	graphs: j: {
		params: ["z"]
		body: {
			a: ["add", "x", "y"]
			b: ["add", "a", "z"]
		}
		return: "b"
	}
	body: c: ["j", 3]
	return: "c"
}
`

// Scoping is f(x, y) with three nested graphs: g captures x and y, h captures
// nothing, and i captures nothing directly but calls g.
const Scoping = `
graph: f: {
	params: ["x", "y"]
	graphs: {
		g: return: ["add", "x", "y"]
		h: {
			params: ["z"]
			return: ["mul", "z", "z"]
		}
		i: {
			params: ["q"]
			return: ["mul", ["g"], "q"]
		}
	}
	return: ["add", ["add", ["g"], ["h", "x"]], ["i", "y"]]
}
`

// CallGraph is f2(y) = f1(y) + 3 where f1 is an independent top-level graph.
const CallGraph = `
graph: {
	f1: {
		params: ["x"]
		return: ["mul", "x", "x"]
	}
	f2: {
		params: ["y"]
		return: ["add", ["f1", "y"], 3]
	}
}
`

// InlineTarget is SumOfSquares plus a parameterless target returning 3.
const InlineTarget = SumOfSquares + `
graph: target: return: 3
`

// Recursive holds a self-recursive graph and a mutually recursive pair.
const Recursive = `
graph: {
	fact: {
		params: ["n"]
		return: ["if", ["lt", "n", 2], 1, ["mul", "n", ["fact", ["sub", "n", 1]]]]
	}
	even: {
		params: ["n"]
		return: ["if", ["eq", "n", 0], true, ["odd", ["sub", "n", 1]]]
	}
	odd: {
		params: ["n"]
		return: ["if", ["eq", "n", 0], false, ["even", ["sub", "n", 1]]]
	}
}
`

// RecursiveClosure is outer(k) with a nested loop(n) that calls itself and
// returns the captured k.
const RecursiveClosure = `
graph: outer: {
	params: ["k"]
	graphs: loop: {
		params: ["n"]
		return: ["if", ["eq", "n", 0], "k", ["loop", ["sub", "n", 1]]]
	}
	return: ["loop", 10]
}
`

// ParentCall is f(x) with a nested k(n) that calls f again. k captures
// nothing: it only reads its own parameter and the graph f.
const ParentCall = `
graph: f: {
	params: ["x"]
	graphs: k: {
		params: ["n"]
		return: ["f", ["sub", "n", 1]]
	}
	return: ["if", ["eq", "x", 0], 0, ["k", "x"]]
}
`

// Compile compiles src and fails the test on error.
func Compile(t testing.TB, src string) *compiler.Program {
	t.Helper()
	prog, err := compiler.CompileString(src)
	require.NoError(t, err)
	return prog
}

// Graph returns the graph declared under a qualified name ("f", "f.j").
func Graph(t testing.TB, prog *compiler.Program, name string) ir.GraphID {
	t.Helper()
	g, ok := prog.Graph(name)
	require.True(t, ok, "graph %q not declared", name)
	return g
}

// WriteSpecs writes src as the only CUE file of a fresh directory and returns
// the directory.
func WriteSpecs(t testing.TB, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "specs.cue"), []byte(src), 0644))
	return dir
}
