// Package audit persists a trail of executed tool calls to SQLite. The
// trail is append-only; sessions themselves are never persisted, only the
// record of which tools ran against them and how they ended.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS tool_executions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts TIMESTAMP NOT NULL,
	turn_id TEXT NOT NULL,
	session_id TEXT NOT NULL,
	server TEXT NOT NULL,
	tool TEXT NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT
);
CREATE INDEX IF NOT EXISTS idx_tool_executions_session ON tool_executions(session_id, ts);
`

// Entry is one recorded tool execution.
type Entry struct {
	ID           int64
	Timestamp    time.Time
	TurnID       string
	SessionID    string
	Server       string
	Tool         string
	Status       string
	ErrorMessage sql.NullString
}

// Store wraps the audit database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the audit database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	// SQLite is single-writer by design. A single shared connection lets
	// database/sql serialize concurrent writers instead of having them
	// fight for the write lock.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create audit schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordExecution appends one tool execution to the trail.
func (s *Store) RecordExecution(ctx context.Context, turnID, sessionID, server, tool, status, errMsg string) error {
	var errorNull sql.NullString
	if errMsg != "" {
		errorNull = sql.NullString{String: errMsg, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tool_executions (ts, turn_id, session_id, server, tool, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, time.Now(), turnID, sessionID, server, tool, status, errorNull)
	if err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// Tail returns the most recent entries, newest first.
func (s *Store) Tail(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, turn_id, session_id, server, tool, status, error_message
		FROM tool_executions
		ORDER BY ts DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit trail: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry := &Entry{}
		if err := rows.Scan(&entry.ID, &entry.Timestamp, &entry.TurnID, &entry.SessionID,
			&entry.Server, &entry.Tool, &entry.Status, &entry.ErrorMessage); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit trail: %w", err)
	}
	return entries, nil
}
