package compiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/anfir/internal/ir"
)

func TestCompileString_SumOfSquares(t *testing.T) {
	prog, err := CompileString(`
graph: f: {
	params: ["x", "y"]
	body: {
		a: ["mul", "x", "x"]
		b: ["mul", "y", "y"]
		c: ["add", "a", "b"]
	}
	return: "c"
}
`)
	require.NoError(t, err)
	m := prog.Module

	f, ok := prog.Graph("f")
	require.True(t, ok)
	assert.Equal(t, []string{"f"}, prog.Order)
	assert.Equal(t, "f", m.GraphName(f))

	params := m.Params(f)
	require.Len(t, params, 2)
	assert.Equal(t, "x", m.NodeName(params[0]))
	assert.Equal(t, "y", m.NodeName(params[1]))

	out, err := m.Output(f)
	require.NoError(t, err)
	assert.Equal(t, "c", m.NodeName(out))
	assert.Equal(t, ir.KindApply, m.Kind(out))

	// One constant per operator: mul is shared by a and b.
	nodes, err := m.Reachable(out, ir.SuccIncoming)
	require.NoError(t, err)
	constants := 0
	for _, n := range nodes {
		if m.Kind(n) == ir.KindConstant {
			constants++
		}
	}
	assert.Equal(t, 2, constants)

	a := m.Operands(out)[0]
	b := m.Operands(out)[1]
	assert.Equal(t, m.Operator(a), m.Operator(b))
}

func TestCompileString_NestedGraphsHaveNoParent(t *testing.T) {
	prog, err := CompileString(`
graph: f: {
	params: ["x"]
	graphs: j: {
		params: ["z"]
		return: ["add", "x", "z"]
	}
	return: ["j", 1]
}
`)
	require.NoError(t, err)
	m := prog.Module
	f, _ := prog.Graph("f")
	j, ok := prog.Graph("f.j")
	require.True(t, ok)
	assert.Equal(t, "j", m.GraphName(j))
	assert.Equal(t, []string{"f"}, prog.Order, "nested graphs are not top-level")

	// j reads f's parameter directly.
	jOut, err := m.Output(j)
	require.NoError(t, err)
	x := m.Operands(jOut)[0]
	assert.Equal(t, f, m.Owner(x))

	// f calls j through a constant.
	fOut, err := m.Output(f)
	require.NoError(t, err)
	ref, ok := m.GraphConstant(m.Operator(fOut))
	require.True(t, ok)
	assert.Equal(t, j, ref)
}

func TestCompileString_Literals(t *testing.T) {
	prog, err := CompileString(`
graph: f: {
	return: ["tuple", 1, true, null, {lit: "add"}, "add"]
}
`)
	require.NoError(t, err)
	m := prog.Module
	f, _ := prog.Graph("f")
	out, err := m.Output(f)
	require.NoError(t, err)

	var kinds []string
	for _, n := range m.Operands(out) {
		v, ok := m.Value(n)
		require.True(t, ok)
		kinds = append(kinds, v.Kind().String()+":"+v.String())
	}
	assert.Equal(t, []string{
		"literal:1",
		"literal:true",
		"literal:null",
		`literal:"add"`,
		"primitive:add",
	}, kinds)
}

func TestCompileString_ForwardAndRecursiveReferences(t *testing.T) {
	prog, err := CompileString(`
graph: {
	caller: {
		params: ["n"]
		return: ["callee", "n"]
	}
	callee: {
		params: ["n"]
		return: ["callee", "n"]
	}
}
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"caller", "callee"}, prog.Order)

	m := prog.Module
	callee, _ := prog.Graph("callee")
	out, err := m.Output(callee)
	require.NoError(t, err)
	ref, ok := m.GraphConstant(m.Operator(out))
	require.True(t, ok)
	assert.Equal(t, callee, ref)
}

func TestCompileString_ShadowingInnermostWins(t *testing.T) {
	prog, err := CompileString(`
graph: f: {
	params: ["x"]
	graphs: g: {
		params: ["x"]
		return: "x"
	}
	return: ["g", "x"]
}
`)
	require.NoError(t, err)
	m := prog.Module
	g, _ := prog.Graph("f.g")
	out, err := m.Output(g)
	require.NoError(t, err)
	assert.Equal(t, g, m.Owner(out))
}

func TestCompileString_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		message string
	}{
		{
			name:    "no graphs",
			src:     `other: 1`,
			message: "no graph declarations found",
		},
		{
			name:    "missing return",
			src:     `graph: f: params: ["x"]`,
			message: "return is required",
		},
		{
			name:    "undefined name",
			src:     `graph: f: return: ["add", "nope", 1]`,
			message: `undefined name "nope"`,
		},
		{
			name:    "duplicate parameter",
			src:     `graph: f: { params: ["x", "x"], return: "x" }`,
			message: `duplicate parameter "x"`,
		},
		{
			name:    "binding shadows parameter",
			src:     `graph: f: { params: ["x"], body: x: 1, return: "x" }`,
			message: "shadows a parameter",
		},
		{
			name:    "binding cycle",
			src:     `graph: f: { body: { a: ["neg", "b"], b: ["neg", "a"] }, return: "a" }`,
			message: "depends on itself",
		},
		{
			name:    "float literal",
			src:     `graph: f: return: ["mul", 1.5, 2]`,
			message: "float literals are not supported",
		},
		{
			name:    "empty application",
			src:     `graph: f: return: []`,
			message: "application requires an operator",
		},
		{
			name:    "struct without lit",
			src:     `graph: f: return: {value: 1}`,
			message: `must be {lit: "..."}`,
		},
		{
			name:    "non-string parameter",
			src:     `graph: f: { params: [1], return: 1 }`,
			message: "parameter names must be strings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileString(tt.src)
			require.Error(t, err)
			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Contains(t, ce.Message, tt.message)
		})
	}
}

func TestCompileString_CUEError(t *testing.T) {
	_, err := CompileString(`graph: f: {`)
	require.Error(t, err)
	var ce *CompileError
	if errors.As(err, &ce) {
		assert.Equal(t, "cue", ce.Field)
		assert.True(t, ce.Pos.IsValid())
	}
}

func TestCompileError_Format(t *testing.T) {
	err := &CompileError{Field: "return", Message: "graph f: return is required"}
	assert.Equal(t, "return: graph f: return is required", err.Error())
}
