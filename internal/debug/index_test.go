package debug_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/anfir/internal/debug"
	"github.com/roach88/anfir/internal/ir"
	"github.com/roach88/anfir/internal/testutil"
)

func TestNewIndex_Incoming(t *testing.T) {
	prog := testutil.Compile(t, testutil.Closure)
	f := testutil.Graph(t, prog, "f")
	j := testutil.Graph(t, prog, "f.j")

	idx, err := debug.NewIndex(prog.Module, f, ir.SuccIncoming)
	require.NoError(t, err)

	for _, name := range []string{"x", "y", "c", "z"} {
		_, ok := idx.Node(name)
		assert.True(t, ok, "node %s", name)
	}
	_, ok := idx.Node("a")
	assert.False(t, ok, "closure bindings are private under Incoming")

	got, ok := idx.Graph("j")
	require.True(t, ok)
	assert.Equal(t, j, got)
	assert.Equal(t, 4, idx.NodeNames())
	assert.Equal(t, 2, idx.GraphNames())
}

func TestNewIndex_Deep(t *testing.T) {
	prog := testutil.Compile(t, testutil.Closure)
	m := prog.Module
	f := testutil.Graph(t, prog, "f")
	j := testutil.Graph(t, prog, "f.j")

	idx, err := debug.NewIndex(m, f, ir.SuccDeep)
	require.NoError(t, err)

	a, ok := idx.Node("a")
	require.True(t, ok)
	assert.Equal(t, j, m.Owner(a))
	assert.Equal(t, 6, idx.NodeNames())
}

func TestIndex_Lookup(t *testing.T) {
	prog := testutil.Compile(t, testutil.SumOfSquares)
	m := prog.Module
	f := testutil.Graph(t, prog, "f")

	idx, err := debug.NewIndex(m, f, ir.SuccIncoming)
	require.NoError(t, err)

	e, err := idx.Lookup("c")
	require.NoError(t, err)
	out, err := m.Output(f)
	require.NoError(t, err)
	assert.Equal(t, out, e.Node)
	assert.False(t, e.Graph.IsValid())

	e, err = idx.Lookup("f")
	require.NoError(t, err)
	assert.Equal(t, f, e.Graph)
	assert.False(t, e.Node.IsValid())

	_, err = idx.Lookup("nope")
	assert.ErrorContains(t, err, `no entity named "nope"`)
}

func TestIndex_FirstVisitWins(t *testing.T) {
	// The nested g declares its own x; f's x is indexed first.
	prog := testutil.Compile(t, `
graph: f: {
	params: ["x"]
	graphs: g: {
		params: ["x"]
		return: "x"
	}
	return: ["g", "x"]
}
`)
	f := testutil.Graph(t, prog, "f")
	idx, err := debug.NewIndex(prog.Module, f, ir.SuccDeep)
	require.NoError(t, err)

	x, ok := idx.Node("x")
	require.True(t, ok)
	assert.Equal(t, f, prog.Module.Owner(x))
}

func TestNewIndex_MissingOutput(t *testing.T) {
	m := ir.NewModule()
	g := m.NewGraph("g")
	_, err := debug.NewIndex(m, g, ir.SuccIncoming)
	require.Error(t, err)
	assert.True(t, ir.IsMissingOutput(err))
}
