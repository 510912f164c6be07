package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anfir.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.FileExists(t, path)
	sessions, err := s.ListSessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestOpen_ReopenKeepsSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anfir.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.WriteSession(ctx, createTestSession("s-a", 1)))
	require.NoError(t, s.Close())

	// Reopening applies the schema again without touching existing rows.
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	sess, err := s.ReadSession(ctx, "s-a")
	require.NoError(t, err)
	assert.Len(t, sess.Nodes, 2)
	seq, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
}

// A second handle can read while the first is still open, as `history` does
// against a journal a clone is writing.
func TestOpen_SecondReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anfir.db")
	ctx := context.Background()

	writer, err := Open(path)
	require.NoError(t, err)
	defer writer.Close()
	require.NoError(t, writer.WriteSession(ctx, createTestSession("s-a", 1)))

	reader, err := Open(path)
	require.NoError(t, err)
	defer reader.Close()

	sessions, err := reader.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s-a", sessions[0].ID)

	var mode string
	require.NoError(t, reader.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestOpen_MissingDirectory(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "anfir.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open journal")
}

func TestClose_Unopened(t *testing.T) {
	assert.NoError(t, (&Store{}).Close())
}

func TestJournal_RejectsOrphanMappings(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`
		INSERT INTO node_mappings (session_id, seq, from_id, to_id)
		VALUES ('missing', 1, 1, 2)
	`)
	assert.Error(t, err, "a mapping needs its session")
}

func TestJournal_RejectsUnknownKind(t *testing.T) {
	s := createTestStore(t)

	sess := createTestSession("s-a", 1)
	sess.Kind = "rewrite"
	assert.Error(t, s.WriteSession(context.Background(), sess))
}

func TestJournal_SeqIsUnique(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteSession(ctx, createTestSession("s-a", 1)))
	assert.Error(t, s.WriteSession(ctx, createTestSession("s-b", 1)))

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1, "the failed write leaves nothing behind")
}

func TestJournal_NodeLookupIsIndexed(t *testing.T) {
	s := createTestStore(t)

	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = 'node_mappings' AND name = ?",
		"idx_node_mappings_from",
	).Scan(&name)
	require.NoError(t, err)
}

func TestLastSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	require.NoError(t, s.WriteSession(ctx, createTestSession("s-a", 4)))
	require.NoError(t, s.WriteSession(ctx, createTestSession("s-b", 5)))
	seq, err = s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), seq)

	// Resuming the clock from the journal continues the sequence.
	assert.Equal(t, int64(6), NewClockAt(seq).Next())
}
