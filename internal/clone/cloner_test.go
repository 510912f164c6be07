package clone

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/anfir/internal/debug"
	"github.com/roach88/anfir/internal/ir"
	"github.com/roach88/anfir/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func deepSet(t *testing.T, m *ir.Module, g ir.GraphID) map[ir.NodeID]struct{} {
	t.Helper()
	out, err := m.Output(g)
	require.NoError(t, err)
	set, err := m.ReachableSet(out, ir.SuccDeep)
	require.NoError(t, err)
	return set
}

func intersect(a, b map[ir.NodeID]struct{}) []ir.NodeID {
	var out []ir.NodeID
	for n := range a {
		if _, ok := b[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

func mustIndex(t *testing.T, m *ir.Module, g ir.GraphID, succ ir.Successors) *debug.Index {
	t.Helper()
	idx, err := debug.NewIndex(m, g, succ)
	require.NoError(t, err)
	return idx
}

func nodeNamed(t *testing.T, idx *debug.Index, name string) ir.NodeID {
	t.Helper()
	n, ok := idx.Node(name)
	require.True(t, ok, "no node named %q", name)
	return n
}

func graphNamed(t *testing.T, idx *debug.Index, name string) ir.GraphID {
	t.Helper()
	g, ok := idx.Graph(name)
	require.True(t, ok, "no graph named %q", name)
	return g
}

func TestClone_SimpleWithConstantsIsDisjoint(t *testing.T) {
	prog := testutil.Compile(t, testutil.SumOfSquares)
	m := prog.Module
	f := testutil.Graph(t, prog, "f")

	cl, err := New(m, WithRoot(f), WithCloneConstants(true), WithLogger(quietLogger()))
	require.NoError(t, err)

	f2 := cl.Graph(f)
	require.NotEqual(t, f, f2)

	d1 := deepSet(t, m, f)
	d2 := deepSet(t, m, f2)
	assert.Empty(t, intersect(d1, d2), "clone must share no node with the original")
	assert.Len(t, d2, len(d1))
}

func TestClone_SimpleWithoutConstantsSharesOperators(t *testing.T) {
	prog := testutil.Compile(t, testutil.SumOfSquares)
	m := prog.Module
	f := testutil.Graph(t, prog, "f")

	cl, err := New(m, WithRoot(f), WithCloneConstants(false), WithLogger(quietLogger()))
	require.NoError(t, err)

	common := intersect(deepSet(t, m, f), deepSet(t, m, cl.Graph(f)))
	require.Len(t, common, 2)

	prims := map[ir.Primitive]bool{}
	for _, n := range common {
		require.Equal(t, ir.KindConstant, m.Kind(n))
		v, _ := m.Value(n)
		p, ok := v.Primitive()
		require.True(t, ok, "shared constant %s should be a primitive", m.Describe(n))
		prims[p] = true
	}
	assert.Equal(t, map[ir.Primitive]bool{ir.PrimAdd: true, ir.PrimMul: true}, prims)
}

func TestClone_ClosureKeepsFreeVariables(t *testing.T) {
	prog := testutil.Compile(t, testutil.Closure)
	m := prog.Module
	f := testutil.Graph(t, prog, "f")

	idx := mustIndex(t, m, f, ir.SuccDeep)
	j := graphNamed(t, idx, "j")

	cl, err := New(m, WithRoot(j), WithCloneConstants(true), WithLogger(quietLogger()))
	require.NoError(t, err)
	idx2 := mustIndex(t, m, cl.Graph(j), ir.SuccIncoming)

	for _, name := range []string{"x", "y"} {
		assert.Equal(t, nodeNamed(t, idx, name), nodeNamed(t, idx2, name), "free variable %s", name)
		assert.Equal(t, nodeNamed(t, idx, name), cl.Node(nodeNamed(t, idx, name)))
	}
	for _, name := range []string{"z", "a", "b"} {
		assert.NotEqual(t, nodeNamed(t, idx, name), nodeNamed(t, idx2, name), "node %s", name)
	}
	assert.NotEqual(t, j, graphNamed(t, idx2, "j"))

	// f itself was never part of the request.
	assert.Equal(t, f, cl.Graph(f))
}

func TestClone_ScopingSharesClosedSiblings(t *testing.T) {
	prog := testutil.Compile(t, testutil.Scoping)
	m := prog.Module
	f := testutil.Graph(t, prog, "f")

	cl, err := New(m, WithRoot(f), WithCloneConstants(true), WithLogger(quietLogger()))
	require.NoError(t, err)

	idx1 := mustIndex(t, m, f, ir.SuccDeep)
	idx2 := mustIndex(t, m, cl.Graph(f), ir.SuccDeep)

	for _, name := range []string{"f", "g", "i"} {
		g1 := graphNamed(t, idx1, name)
		g2 := graphNamed(t, idx2, name)
		assert.NotEqual(t, g1, g2, "graph %s should be cloned", name)
		assert.Equal(t, g2, cl.Graph(g1))
	}
	h := graphNamed(t, idx1, "h")
	assert.Equal(t, h, graphNamed(t, idx2, "h"))
	assert.Equal(t, h, cl.Graph(h))
}

func TestClone_TotalVersusScoped(t *testing.T) {
	tests := []struct {
		name    string
		total   bool
		cloneF1 bool
	}{
		{name: "total clones the callee", total: true, cloneF1: true},
		{name: "scoped shares the callee", total: false, cloneF1: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := testutil.Compile(t, testutil.CallGraph)
			m := prog.Module
			f2 := testutil.Graph(t, prog, "f2")
			idx0 := mustIndex(t, m, f2, ir.SuccDeep)

			cl, err := New(m,
				WithRoot(f2),
				WithCloneConstants(true),
				WithTotal(tt.total),
				WithLogger(quietLogger()),
			)
			require.NoError(t, err)
			idx := mustIndex(t, m, cl.Graph(f2), ir.SuccDeep)

			assert.NotEqual(t, graphNamed(t, idx0, "f2"), graphNamed(t, idx, "f2"))
			if tt.cloneF1 {
				assert.NotEqual(t, graphNamed(t, idx0, "f1"), graphNamed(t, idx, "f1"))
			} else {
				assert.Equal(t, graphNamed(t, idx0, "f1"), graphNamed(t, idx, "f1"))
			}
		})
	}
}

func TestInline_SubstitutesParameters(t *testing.T) {
	prog := testutil.Compile(t, testutil.InlineTarget)
	m := prog.Module
	f := testutil.Graph(t, prog, "f")
	target := testutil.Graph(t, prog, "target")

	one, err := m.NewConstant(ir.LiteralValue(ir.IRInt(1)))
	require.NoError(t, err)
	two, err := m.NewConstant(ir.LiteralValue(ir.IRInt(2)))
	require.NoError(t, err)
	three, err := m.Output(target)
	require.NoError(t, err)

	cl, err := New(m, WithCloneConstants(false), WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, cl.Inline(f, target, []ir.NodeID{one, two}, false))

	// target does not replace f
	assert.Equal(t, f, cl.Graph(f))

	fOut, err := m.Output(f)
	require.NoError(t, err)
	newRoot := cl.Node(fOut)
	assert.NotEqual(t, fOut, newRoot)

	// target is untouched
	out, err := m.Output(target)
	require.NoError(t, err)
	assert.Equal(t, three, out)

	nodes, err := m.ReachableSet(newRoot, ir.SuccIncoming)
	require.NoError(t, err)
	assert.Contains(t, nodes, one)
	assert.Contains(t, nodes, two)
	for _, p := range m.Params(f) {
		assert.NotContains(t, nodes, p, "parameter %s should be substituted", m.Describe(p))
	}

	orig, err := m.Reachable(fOut, ir.SuccIncoming)
	require.NoError(t, err)
	for _, n := range orig {
		if m.Owner(n) != f {
			continue
		}
		owner := m.Owner(cl.Node(n))
		assert.True(t, owner == target || owner == ir.NoGraphID,
			"%s should be owned by target, got %s", m.Describe(cl.Node(n)), owner)
	}
}

// s returns a closure over its parameter. Inlining s clones the closure, and
// the copy reads the replacement instead of x.
func TestInline_ClosureCapturesReplacedParameter(t *testing.T) {
	prog := testutil.Compile(t, `
graph: {
	s: {
		params: ["x"]
		graphs: k: return: ["neg", "x"]
		return: "k"
	}
	target: return: 0
}
`)
	m := prog.Module
	s := testutil.Graph(t, prog, "s")
	k := testutil.Graph(t, prog, "s.k")
	target := testutil.Graph(t, prog, "target")

	seven, err := m.NewConstant(ir.LiteralValue(ir.IRInt(7)))
	require.NoError(t, err)

	cl, err := New(m, WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, cl.Inline(s, target, []ir.NodeID{seven}, false))

	k2 := cl.Graph(k)
	require.NotEqual(t, k, k2, "k captures x, so it is copied")
	sOut, err := m.Output(s)
	require.NoError(t, err)
	got, ok := m.GraphConstant(cl.Node(sOut))
	require.True(t, ok)
	assert.Equal(t, k2, got)

	kOut, err := m.Output(k2)
	require.NoError(t, err)
	assert.Equal(t, k2, m.Owner(kOut))
	assert.Equal(t, seven, m.Inputs(kOut)[1])

	listing, err := ir.Print(m, k2)
	require.NoError(t, err)
	assert.Equal(t, "graph k() {\n  %1 = neg(7)\n  return %1\n}\n", listing)

	// The original closure still reads x.
	x := m.Params(s)[0]
	origOut, err := m.Output(k)
	require.NoError(t, err)
	assert.Equal(t, x, m.Inputs(origOut)[1])
}

func TestCreated_LeavesOutInlineSeeds(t *testing.T) {
	prog := testutil.Compile(t, testutil.InlineTarget)
	m := prog.Module
	f := testutil.Graph(t, prog, "f")
	target := testutil.Graph(t, prog, "target")

	two, err := m.NewConstant(ir.LiteralValue(ir.IRInt(2)))
	require.NoError(t, err)
	five, err := m.NewConstant(ir.LiteralValue(ir.IRInt(5)))
	require.NoError(t, err)

	cl, err := New(m, WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, cl.Inline(f, target, []ir.NodeID{two, five}, true))

	graphs, nodes := cl.Created()
	assert.Equal(t, 0, graphs, "remapping f onto target creates no graph")
	assert.Equal(t, 3, nodes, "a, b and c")

	tableGraphs, tableNodes := cl.Table().Len()
	assert.Equal(t, 1, tableGraphs)
	assert.Equal(t, 5, tableNodes, "the two seeds are translations too")

	// Later requests add to the count.
	require.NoError(t, cl.Clone(f))
	graphs, nodes = cl.Created()
	assert.Equal(t, 0, graphs, "f already translates to target")
	assert.Equal(t, 3, nodes)
}

func TestInline_RemapSourceIdentity(t *testing.T) {
	prog := testutil.Compile(t, testutil.Recursive)
	m := prog.Module
	fact := testutil.Graph(t, prog, "fact")
	host := m.NewGraph("host")
	arg, err := m.AddParameter(host, "m")
	require.NoError(t, err)

	cl, err := New(m, WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, cl.Inline(fact, host, []ir.NodeID{arg}, true))

	assert.Equal(t, host, cl.Graph(fact))

	// The recursive call inside the spliced body now calls host.
	out, err := m.Output(fact)
	require.NoError(t, err)
	refs := map[ir.GraphID]bool{}
	for n, err := range m.DFS(cl.Node(out), ir.SuccIncoming) {
		require.NoError(t, err)
		if g, ok := m.GraphConstant(n); ok {
			refs[g] = true
		}
	}
	assert.True(t, refs[host])
	assert.False(t, refs[fact])
}

func TestInline_NoRemapKeepsSelfReference(t *testing.T) {
	prog := testutil.Compile(t, testutil.Recursive)
	m := prog.Module
	fact := testutil.Graph(t, prog, "fact")
	host := m.NewGraph("host")
	arg, err := m.AddParameter(host, "m")
	require.NoError(t, err)
	graphs := m.NumGraphs()

	cl, err := New(m, WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, cl.Inline(fact, host, []ir.NodeID{arg}, false))

	out, err := m.Output(fact)
	require.NoError(t, err)
	refs := map[ir.GraphID]bool{}
	for n, err := range m.DFS(cl.Node(out), ir.SuccIncoming) {
		require.NoError(t, err)
		if g, ok := m.GraphConstant(n); ok {
			refs[g] = true
		}
	}
	assert.True(t, refs[fact])
	assert.False(t, refs[host])
	assert.Equal(t, graphs, m.NumGraphs(), "inlining a body without closures creates no graph")
}

func TestInline_ArityMismatch(t *testing.T) {
	prog := testutil.Compile(t, testutil.InlineTarget)
	m := prog.Module
	f := testutil.Graph(t, prog, "f")
	target := testutil.Graph(t, prog, "target")

	one, err := m.NewConstant(ir.LiteralValue(ir.IRInt(1)))
	require.NoError(t, err)
	before := m.NumNodes()

	cl, err := New(m, WithLogger(quietLogger()))
	require.NoError(t, err)
	err = cl.Inline(f, target, []ir.NodeID{one}, false)
	require.Error(t, err)
	assert.True(t, IsArityError(err))

	var ce *CloneError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 2, ce.Expected)
	assert.Equal(t, 1, ce.Actual)
	assert.Equal(t, before, m.NumNodes(), "no node may be created on arity mismatch")

	graphs, nodes := cl.Table().Len()
	assert.Zero(t, graphs)
	assert.Zero(t, nodes)
}

func TestInline_UnknownReplacement(t *testing.T) {
	prog := testutil.Compile(t, testutil.InlineTarget)
	m := prog.Module
	f := testutil.Graph(t, prog, "f")
	target := testutil.Graph(t, prog, "target")
	one, err := m.NewConstant(ir.LiteralValue(ir.IRInt(1)))
	require.NoError(t, err)

	cl, err := New(m, WithLogger(quietLogger()))
	require.NoError(t, err)
	err = cl.Inline(f, target, []ir.NodeID{one, ir.NodeID(9999)}, false)

	var ce *CloneError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeUnknownReplacement, ce.Code)
	assert.False(t, IsArityError(err))
}

func TestClone_MissingOutputFailsFast(t *testing.T) {
	m := ir.NewModule()
	g := m.NewGraph("empty")
	before := m.NumGraphs()

	_, err := New(m, WithRoot(g), WithLogger(quietLogger()))
	require.Error(t, err)
	assert.True(t, ir.IsMissingOutput(err))
	assert.Equal(t, before, m.NumGraphs())
}

func TestClone_MissingOutputOfReferencedGraph(t *testing.T) {
	m := ir.NewModule()
	broken := m.NewGraph("broken")
	f := m.NewGraph("f")
	x, err := m.AddParameter(f, "x")
	require.NoError(t, err)
	ref, err := m.NewConstant(ir.GraphValue(broken))
	require.NoError(t, err)
	call, err := m.NewApply(f, ref, x)
	require.NoError(t, err)
	require.NoError(t, m.SetOutput(f, call))
	nodes := m.NumNodes()

	_, err = New(m, WithRoot(f), WithLogger(quietLogger()))
	require.Error(t, err)
	assert.True(t, ir.IsMissingOutput(err))
	assert.Equal(t, nodes, m.NumNodes())
}

func TestClone_UnknownRoot(t *testing.T) {
	m := ir.NewModule()
	_, err := New(m, WithRoot(ir.GraphID(7)), WithLogger(quietLogger()))
	require.Error(t, err)
	assert.True(t, ir.IsUnknownEntity(err))
}

func TestClone_SelfRecursion(t *testing.T) {
	prog := testutil.Compile(t, testutil.Recursive)
	m := prog.Module
	fact := testutil.Graph(t, prog, "fact")

	cl, err := New(m, WithRoot(fact), WithLogger(quietLogger()))
	require.NoError(t, err)
	fact2 := cl.Graph(fact)
	require.NotEqual(t, fact, fact2)

	// Every graph reference inside the clone points at the clone.
	for n := range deepSet(t, m, fact2) {
		if g, ok := m.GraphConstant(n); ok {
			assert.Equal(t, fact2, g)
		}
	}
	assert.Equal(t, ir.MustFingerprint(m, fact), ir.MustFingerprint(m, fact2))
}

func TestClone_MutualRecursion(t *testing.T) {
	prog := testutil.Compile(t, testutil.Recursive)
	m := prog.Module
	even := testutil.Graph(t, prog, "even")
	odd := testutil.Graph(t, prog, "odd")

	t.Run("scoped shares the callee", func(t *testing.T) {
		cl, err := New(m, WithRoot(even), WithLogger(quietLogger()))
		require.NoError(t, err)

		even2 := cl.Graph(even)
		require.NotEqual(t, even, even2)
		assert.Equal(t, odd, cl.Graph(odd), "odd only calls even by value")

		// The copy calls the original odd, which still calls the original even.
		for n := range deepSet(t, m, even2) {
			if g, ok := m.GraphConstant(n); ok {
				assert.Contains(t, []ir.GraphID{odd, even}, g)
			}
		}
		graphs, nodes := cl.Table().Len()
		assert.Equal(t, 1, graphs)
		assert.Equal(t, 5, nodes)
	})

	t.Run("total clones both halves", func(t *testing.T) {
		cl, err := New(m, WithRoot(even), WithTotal(true), WithLogger(quietLogger()))
		require.NoError(t, err)

		even2, odd2 := cl.Graph(even), cl.Graph(odd)
		require.NotEqual(t, even, even2)
		require.NotEqual(t, odd, odd2)
		for n := range deepSet(t, m, even2) {
			if g, ok := m.GraphConstant(n); ok {
				assert.Contains(t, []ir.GraphID{even2, odd2}, g)
			}
		}
	})
}

func TestClone_ClosureCallingRootParent(t *testing.T) {
	prog := testutil.Compile(t, testutil.ParentCall)
	m := prog.Module
	f := testutil.Graph(t, prog, "f")
	k := testutil.Graph(t, prog, "f.k")

	cl, err := New(m, WithRoot(f), WithLogger(quietLogger()))
	require.NoError(t, err)

	f2 := cl.Graph(f)
	require.NotEqual(t, f, f2)
	assert.Equal(t, k, cl.Graph(k), "k captures nothing of f")

	calls := 0
	for n := range deepSet(t, m, f2) {
		if g, ok := m.GraphConstant(n); ok && g == f {
			calls++
		}
	}
	assert.Equal(t, 1, calls, "the shared k still calls the original f")
}

func TestClone_RecursiveClosure(t *testing.T) {
	prog := testutil.Compile(t, testutil.RecursiveClosure)
	m := prog.Module
	outer := testutil.Graph(t, prog, "outer")
	loop := testutil.Graph(t, prog, "outer.loop")

	cl, err := New(m, WithRoot(outer), WithCloneConstants(true), WithLogger(quietLogger()))
	require.NoError(t, err)

	loop2 := cl.Graph(loop)
	require.NotEqual(t, loop, loop2)
	assert.Empty(t, intersect(deepSet(t, m, outer), deepSet(t, m, cl.Graph(outer))))

	// The clone of loop returns the clone of k.
	k := m.Params(outer)[0]
	idx := mustIndex(t, m, loop2, ir.SuccDeep)
	assert.Equal(t, cl.Node(k), nodeNamed(t, idx, "k"))
}

func TestClone_TableAccumulates(t *testing.T) {
	prog := testutil.Compile(t, testutil.CallGraph)
	m := prog.Module
	f1 := testutil.Graph(t, prog, "f1")
	f2 := testutil.Graph(t, prog, "f2")

	cl, err := New(m, WithRoot(f1), WithLogger(quietLogger()))
	require.NoError(t, err)
	f1Clone := cl.Graph(f1)
	graphs, _ := cl.Table().Len()
	require.Equal(t, 1, graphs)

	require.NoError(t, cl.Clone(f1, f2))
	assert.Equal(t, f1Clone, cl.Graph(f1), "earlier translation is reused")
	assert.NotEqual(t, f2, cl.Graph(f2))

	mappings := cl.Table().Graphs()
	require.Len(t, mappings, 2)
	assert.Equal(t, GraphMapping{From: f1, To: f1Clone}, mappings[0])
	assert.Equal(t, f2, mappings[1].From)
}

func TestClone_LookupFallsBackToIdentity(t *testing.T) {
	prog := testutil.Compile(t, testutil.SumOfSquares)
	m := prog.Module
	f := testutil.Graph(t, prog, "f")

	cl, err := New(m, WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Equal(t, f, cl.Graph(f))
	out, err := m.Output(f)
	require.NoError(t, err)
	assert.Equal(t, out, cl.Node(out))
	assert.Equal(t, ir.NodeID(12345), cl.Node(ir.NodeID(12345)))
}

func TestClone_PreservesStructure(t *testing.T) {
	sources := map[string]string{
		"sum of squares": testutil.SumOfSquares,
		"closure":        testutil.Closure,
		"scoping":        testutil.Scoping,
		"call graph":     testutil.CallGraph,
		"recursive":      testutil.Recursive,
	}
	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			prog := testutil.Compile(t, src)
			m := prog.Module
			for _, gname := range prog.Order {
				g := testutil.Graph(t, prog, gname)
				cl, err := New(m, WithRoot(g), WithCloneConstants(true), WithLogger(quietLogger()))
				require.NoError(t, err)

				want, err := ir.Print(m, g)
				require.NoError(t, err)
				got, err := ir.Print(m, cl.Graph(g))
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}
		})
	}
}
