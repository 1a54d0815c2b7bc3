package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema
// creation. Each migration must be idempotent. Append new migrations at
// the end.
var migrations = []string{
	// Migration 1: balance computation scans all tickets for an
	// (item, user) pair on every return, so index that lookup.
	`CREATE INDEX IF NOT EXISTS idx_tickets_item_user
	     ON tickets(item_id, username)`,
}

// Migrate runs the database schema migrations.
func Migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}
	return nil
}
