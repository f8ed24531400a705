// Package store persists the usage ledger and conversation log in SQLite.
// Both tables are append-only; no update or delete is ever issued.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database holding the usage ledger and the
// conversation log.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// New opens (or creates) the SQLite database at the given path, creates any
// missing tables, and applies forward migrations for databases created
// under an older column set.
func New(path string) (*Store, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// initialize creates the required tables.
func (s *Store) initialize() error {
	usageTable := `
	CREATE TABLE IF NOT EXISTS api_usage (
		api TEXT NOT NULL,
		prompt_tokens INTEGER NOT NULL DEFAULT 0,
		completion_tokens INTEGER NOT NULL DEFAULT 0,
		tokens_used INTEGER NOT NULL DEFAULT 0,
		cost REAL NOT NULL DEFAULT 0,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_api_usage_api ON api_usage(api);
	`

	conversationTable := `
	CREATE TABLE IF NOT EXISTS conversations (
		user_id INTEGER NOT NULL,
		message TEXT NOT NULL,
		response TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id);
	`

	for _, schema := range []string{usageTable, conversationTable} {
		if _, err := s.db.Exec(schema); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// DB exposes the underlying handle for migrations and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
