package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// journalParams are go-sqlite3 DSN parameters applied to every connection.
// WAL lets `anfir history` read a journal while a clone appends to it;
// foreign keys keep mappings from outliving their session.
const journalParams = "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"

// Store is an append-only SQLite journal of clone and inline sessions.
type Store struct {
	db *sql.DB
}

// Open opens the journal at path, creating the file and its tables when
// they do not exist yet.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+journalParams)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	// One connection: sessions are written in a single transaction each and
	// SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal tables: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the journal.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// LastSeq returns the highest session seq recorded, or 0 for an empty
// journal. Callers resume their logical clock from it.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM sessions").Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}
