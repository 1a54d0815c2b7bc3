package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
//
// The quantity CHECK backstops the stock invariant: quantity always equals
// initial stock plus returns minus takes, and a conditional update in the
// ledger keeps it from going negative even under concurrent requests.
const schema = `
CREATE TABLE IF NOT EXISTS items (
    id         INTEGER PRIMARY KEY,
    ext_id     TEXT NOT NULL UNIQUE,
    name       TEXT NOT NULL,
    code       TEXT,
    brand      TEXT NOT NULL,
    quantity   INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
    type       TEXT,
    photo      BLOB,
    photo_mime TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tickets (
    id                  INTEGER PRIMARY KEY,
    ext_id              TEXT NOT NULL UNIQUE,
    kind                TEXT NOT NULL CHECK (kind IN ('take', 'return')),
    item_id             TEXT NOT NULL,
    username            TEXT NOT NULL,
    qty                 INTEGER NOT NULL CHECK (qty > 0),
    destination         TEXT,
    signature           TEXT NOT NULL,
    created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    forced_return       INTEGER NOT NULL DEFAULT 0,
    original_user_taken INTEGER
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return Migrate(db)
}
