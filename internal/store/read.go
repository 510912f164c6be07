package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned by ReadSession for an unknown ID.
var ErrSessionNotFound = errors.New("session not found")

// ReadSession returns a session with its mappings.
// Mappings are returned in the order they were recorded.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, kind, source, roots, clone_constants, total, remap_source, fingerprint, ir_version
		FROM sessions
		WHERE id = ?
	`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("read session %s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return Session{}, err
	}

	sess.Graphs, err = s.readMappings(ctx, "graph_mappings", id)
	if err != nil {
		return Session{}, err
	}
	sess.Nodes, err = s.readMappings(ctx, "node_mappings", id)
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// ListSessions returns every session without mappings.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) for an empty journal.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, kind, source, roots, clone_constants, total, remap_source, fingerprint, ir_version
		FROM sessions
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// NodeTranslation is one recorded translation of a node, with its session.
type NodeTranslation struct {
	SessionID string `json:"session_id"`
	Seq       int64  `json:"seq"`
	To        uint32 `json:"to"`
}

// FindNodeMapping returns every translation recorded for node from, oldest
// session first.
func (s *Store) FindNodeMapping(ctx context.Context, from uint32) ([]NodeTranslation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.session_id, s.seq, m.to_id
		FROM node_mappings m
		JOIN sessions s ON m.session_id = s.id
		WHERE m.from_id = ?
		ORDER BY s.seq ASC, m.session_id COLLATE BINARY ASC
	`, from)
	if err != nil {
		return nil, fmt.Errorf("query node mappings: %w", err)
	}
	defer rows.Close()

	out := []NodeTranslation{}
	for rows.Next() {
		var nt NodeTranslation
		if err := rows.Scan(&nt.SessionID, &nt.Seq, &nt.To); err != nil {
			return nil, fmt.Errorf("scan node mapping: %w", err)
		}
		out = append(out, nt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate node mappings: %w", err)
	}
	return out, nil
}

func (s *Store) readMappings(ctx context.Context, table, sessionID string) ([]Mapping, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT from_id, to_id, name
		FROM %s
		WHERE session_id = ?
		ORDER BY seq ASC
	`, table), sessionID)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	mappings := []Mapping{}
	for rows.Next() {
		var mp Mapping
		if err := rows.Scan(&mp.From, &mp.To, &mp.Name); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		mappings = append(mappings, mp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return mappings, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var (
		sess                         Session
		kind, rootsJSON              string
		cloneConsts, total, remapSrc int
	)
	err := row.Scan(
		&sess.ID,
		&sess.Seq,
		&kind,
		&sess.Source,
		&rootsJSON,
		&cloneConsts,
		&total,
		&remapSrc,
		&sess.Fingerprint,
		&sess.IRVersion,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, err
	}
	if err != nil {
		return Session{}, fmt.Errorf("scan session: %w", err)
	}

	sess.Kind = SessionKind(kind)
	sess.CloneConstants = cloneConsts != 0
	sess.Total = total != 0
	sess.RemapSource = remapSrc != 0
	sess.Roots, err = unmarshalRoots(rootsJSON)
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}
