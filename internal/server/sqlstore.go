package server

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL,
	ended_at   DATETIME
);

CREATE TABLE IF NOT EXISTS session_actions (
	session_id TEXT    NOT NULL REFERENCES sessions(id),
	seq        INTEGER NOT NULL,
	action     TEXT    NOT NULL,
	PRIMARY KEY (session_id, seq)
);
`

// SQLStore is a SQLite-backed Store.
type SQLStore struct {
	db *sql.DB
}

// OpenSQLStore opens (and if necessary creates) the SQLite database at path.
func OpenSQLStore(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error { return s.db.Close() }

// CreateSession implements Store.
func (s *SQLStore) CreateSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at) VALUES (?, ?)`,
		sessionID, time.Now().UTC())
	return err
}

// AppendAction implements Store.
func (s *SQLStore) AppendAction(ctx context.Context, sessionID string, seq int64, action []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_actions (session_id, seq, action) VALUES (?, ?, ?)`,
		sessionID, seq, string(action))
	return err
}

// Actions implements Store.
func (s *SQLStore) Actions(ctx context.Context, sessionID string) ([][]byte, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE id = ?`, sessionID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, ErrUnknownSession
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT action FROM session_actions WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions [][]byte
	for rows.Next() {
		var action string
		if err := rows.Scan(&action); err != nil {
			return nil, err
		}
		actions = append(actions, []byte(action))
	}
	return actions, rows.Err()
}

// EndSession implements Store.
func (s *SQLStore) EndSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ? WHERE id = ?`,
		time.Now().UTC(), sessionID)
	return err
}
