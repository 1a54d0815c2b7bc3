package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/danielvc/panol/internal/model"
)

// ListTickets returns tickets, optionally filtered by item and/or username.
// The ledger is append-only: there is no update or delete counterpart.
func ListTickets(ctx context.Context, db *sql.DB, itemID, username string) ([]model.Ticket, error) {
	query := `SELECT id, ext_id, kind, item_id, username, qty, destination, signature,
	                 created_at, forced_return, original_user_taken
	          FROM tickets WHERE 1=1`
	var args []any

	if itemID != "" {
		query += ` AND item_id = ?`
		args = append(args, itemID)
	}
	if username != "" {
		query += ` AND username = ?`
		args = append(args, username)
	}

	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tickets: %w", err)
	}
	defer rows.Close()

	return scanTickets(rows)
}

func scanTickets(rows *sql.Rows) ([]model.Ticket, error) {
	var tickets []model.Ticket
	for rows.Next() {
		var t model.Ticket
		var destination sql.NullString
		var originalUserTaken sql.NullInt64
		if err := rows.Scan(&t.RowID, &t.ID, &t.Kind, &t.ItemID, &t.Username, &t.Qty,
			&destination, &t.Signature, &t.Date, &t.ForcedReturn, &originalUserTaken); err != nil {
			return nil, fmt.Errorf("scanning ticket: %w", err)
		}
		t.Destination = destination.String
		if originalUserTaken.Valid {
			v := int(originalUserTaken.Int64)
			t.OriginalUserTaken = &v
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}
