package store

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Migration defines a database schema migration.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations lists all schema migrations to apply. These handle
// databases created under the original column set, where api_usage carried
// only (api, tokens_used, cost, timestamp): the per-direction token columns
// are added without touching existing rows.
var pendingMigrations = []Migration{
	{"api_usage", "prompt_tokens", "INTEGER NOT NULL DEFAULT 0"},
	{"api_usage", "completion_tokens", "INTEGER NOT NULL DEFAULT 0"},
}

var migrationLogger = zap.NewNop()

// SetMigrationLogger installs a logger for migration progress. Call before
// New; defaults to a no-op logger.
func SetMigrationLogger(l *zap.Logger) {
	if l != nil {
		migrationLogger = l
	}
}

// RunMigrations applies schema migrations for existing databases.
func RunMigrations(db *sql.DB) error {
	applied := 0
	skipped := 0

	for _, m := range pendingMigrations {
		// If the table doesn't exist in this DB, skip quietly.
		if !tableExists(db, m.Table) {
			skipped++
			continue
		}

		if columnExists(db, m.Table, m.Column) {
			skipped++
			continue
		}

		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(query); err != nil {
			// Column may already exist in a different form; don't fail.
			migrationLogger.Warn("migration failed",
				zap.String("table", m.Table),
				zap.String("column", m.Column),
				zap.Error(err))
			skipped++
			continue
		}
		migrationLogger.Info("migration applied",
			zap.String("table", m.Table),
			zap.String("column", m.Column))
		applied++
	}

	migrationLogger.Debug("schema migrations complete",
		zap.Int("applied", applied),
		zap.Int("skipped", skipped))
	return nil
}

// columnExists checks if a column exists in a table using PRAGMA table_info.
func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

// tableExists checks if a table exists.
func tableExists(db *sql.DB, table string) bool {
	var name string
	err := db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
	).Scan(&name)
	return err == nil
}
