package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/anfir/internal/ir"
	"github.com/roach88/anfir/internal/store"
	"github.com/roach88/anfir/internal/testutil"
)

const closureListing = `graph f(x, y) {
  c = @j(3)
  return c
}

graph j(z) {
  a = add(x, y)
  b = add(a, z)
  return b
}
`

func TestCloneClosure(t *testing.T) {
	dir := testutil.WriteSpecs(t, testutil.Closure)

	out, err := execute(NewCloneCommand(testRootOptions("text")), dir, "--graph", "f")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Cloned f (2 graph(s), 7 node(s))\n")
	assert.NotContains(t, out, "journaled session")
	assert.Contains(t, out, "\n"+closureListing)
}

func TestCloneJSON(t *testing.T) {
	dir := testutil.WriteSpecs(t, testutil.Closure)
	prog := testutil.Compile(t, testutil.Closure)
	fp := ir.MustFingerprint(prog.Module, testutil.Graph(t, prog, "f"))

	out, err := execute(NewCloneCommand(testRootOptions("json")), dir, "--graph", "f")
	require.NoError(t, err)

	var result CloneResult
	resp := decodeData(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"f"}, result.Roots)
	assert.Equal(t, 2, result.GraphsCloned)
	assert.Equal(t, 7, result.NodesCloned)
	assert.Equal(t, fp, result.Fingerprint)
	assert.True(t, result.Faithful)
	assert.Equal(t, closureListing, result.Listing)
	assert.Empty(t, result.SessionID)
}

func TestCloneOptions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		args []string
		want string
	}{
		{
			name: "shared callee",
			src:  testutil.CallGraph,
			args: []string{"--graph", "f2"},
			want: "✓ Cloned f2 (1 graph(s), 3 node(s))",
		},
		{
			name: "total",
			src:  testutil.CallGraph,
			args: []string{"--graph", "f2", "--total"},
			want: "✓ Cloned f2 (2 graph(s), 6 node(s))",
		},
		{
			name: "clone constants",
			src:  testutil.SumOfSquares,
			args: []string{"--graph", "f", "--clone-constants"},
			want: "✓ Cloned f (1 graph(s), 7 node(s))",
		},
		{
			name: "several roots",
			src:  testutil.CallGraph,
			args: []string{"--graph", "f1", "--graph", "f2"},
			want: "✓ Cloned f1, f2 (2 graph(s), 6 node(s))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := testutil.WriteSpecs(t, tt.src)
			out, err := execute(NewCloneCommand(testRootOptions("text")), append([]string{dir}, tt.args...)...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestCloneJournal(t *testing.T) {
	dir := testutil.WriteSpecs(t, testutil.Closure)
	db := filepath.Join(t.TempDir(), "anfir.db")
	ids := testutil.NewSequentialIDGenerator("clone")

	for i := 0; i < 2; i++ {
		buf := &bytes.Buffer{}
		opts := &CloneOptions{
			RootOptions: testRootOptions("text"),
			Graphs:      []string{"f"},
			Database:    db,
			IDGenerator: ids,
		}
		require.NoError(t, runClone(opts, dir, bareCommand(buf)))
		assert.Contains(t, buf.String(), "journaled session clone-000")
	}

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	sessions, err := st.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "clone-0001", sessions[0].ID)
	assert.Equal(t, int64(1), sessions[0].Seq)
	assert.Equal(t, "clone-0002", sessions[1].ID)
	assert.Equal(t, int64(2), sessions[1].Seq)

	sess, err := st.ReadSession(ctx, "clone-0001")
	require.NoError(t, err)
	assert.Equal(t, store.SessionClone, sess.Kind)
	assert.Equal(t, dir, sess.Source)
	assert.Equal(t, []string{"f"}, sess.Roots)
	assert.Equal(t, ir.IRVersion, sess.IRVersion)
	assert.Len(t, sess.Graphs, 2)
	assert.Len(t, sess.Nodes, 7)
	assert.Equal(t, "f", sess.Graphs[0].Name)
}

func TestCloneErrors(t *testing.T) {
	dir := testutil.WriteSpecs(t, testutil.Closure)

	t.Run("unknown graph", func(t *testing.T) {
		out, err := execute(NewCloneCommand(testRootOptions("text")), dir, "--graph", "nope")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out, "Error [E009]")
		assert.Contains(t, out, `unknown graph "nope"`)
	})

	t.Run("missing graph flag", func(t *testing.T) {
		_, err := execute(NewCloneCommand(testRootOptions("text")), dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `required flag(s) "graph" not set`)
	})

	t.Run("missing specs", func(t *testing.T) {
		_, err := execute(NewCloneCommand(testRootOptions("text")), "/nonexistent/specs", "--graph", "f")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})
}
