package store

import (
	"path/filepath"
	"testing"
)

// createTestStore creates a fresh store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSession creates a clone session with two node mappings.
func createTestSession(id string, seq int64) Session {
	return Session{
		ID:          id,
		Seq:         seq,
		Kind:        SessionClone,
		Source:      "testdata/specs",
		Roots:       []string{"f"},
		Fingerprint: "test-hash",
		IRVersion:   "1",
		Graphs:      []Mapping{{From: 1, To: 3, Name: "f"}},
		Nodes: []Mapping{
			{From: 1, To: 10, Name: "x"},
			{From: 4, To: 11, Name: "c"},
		},
	}
}
