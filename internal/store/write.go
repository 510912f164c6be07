package store

import (
	"context"
	"database/sql"
	"fmt"
)

// WriteSession inserts a session and its mappings in one transaction.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - writing the same session
// twice leaves the first copy in place. A different session reusing a seq
// is an error (UNIQUE constraint on seq).
//
// The session's Roots are serialized to canonical JSON per RFC 8785.
func (s *Store) WriteSession(ctx context.Context, sess Session) error {
	if sess.ID == "" {
		return fmt.Errorf("write session: id is required")
	}
	rootsJSON, err := marshalRoots(sess.Roots)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write session: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `
		INSERT INTO sessions
		(id, seq, kind, source, roots, clone_constants, total, remap_source, fingerprint, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID,
		sess.Seq,
		string(sess.Kind),
		sess.Source,
		rootsJSON,
		boolToInt(sess.CloneConstants),
		boolToInt(sess.Total),
		boolToInt(sess.RemapSource),
		sess.Fingerprint,
		sess.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Already journaled; mappings were written with it.
		return tx.Commit()
	}

	if err := writeMappings(ctx, tx, "graph_mappings", sess.ID, sess.Graphs); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := writeMappings(ctx, tx, "node_mappings", sess.ID, sess.Nodes); err != nil {
		return fmt.Errorf("write session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write session: commit: %w", err)
	}
	return nil
}

// writeMappings inserts mappings in order; their position becomes seq.
func writeMappings(ctx context.Context, tx *sql.Tx, table, sessionID string, mappings []Mapping) error {
	if len(mappings) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (session_id, seq, from_id, to_id, name)
		VALUES (?, ?, ?, ?, ?)
	`, table))
	if err != nil {
		return fmt.Errorf("prepare %s: %w", table, err)
	}
	defer stmt.Close()

	for i, mp := range mappings {
		if _, err := stmt.ExecContext(ctx, sessionID, i+1, mp.From, mp.To, mp.Name); err != nil {
			return fmt.Errorf("insert %s[%d]: %w", table, i, err)
		}
	}
	return nil
}
