package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/danielvc/panol/internal/ids"
	"github.com/danielvc/panol/internal/model"
)

// CreateItem creates a new catalog item. When id is empty one is derived
// from the name; when that collides with an existing item a disambiguating
// suffix is appended. When code is empty it is derived from the final id.
func CreateItem(ctx context.Context, db *sql.DB, id, name, code, brand string, quantity int, typ string) (*model.Item, error) {
	finalID := strings.TrimSpace(id)
	if finalID == "" {
		finalID = ids.FromName(name)
	}

	existing, err := GetItem(ctx, db, finalID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		finalID = ids.Disambiguate(finalID)
	}

	finalCode := strings.TrimSpace(code)
	if finalCode == "" {
		finalCode = ids.DefaultCode(finalID)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO items (ext_id, name, code, brand, quantity, type) VALUES (?, ?, ?, ?, ?, ?)`,
		finalID, name, finalCode, brand, quantity, typ,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return GetItem(ctx, db, finalID)
}

// GetItem returns an item by external ID, or nil if it doesn't exist.
func GetItem(ctx context.Context, db *sql.DB, extID string) (*model.Item, error) {
	item := &model.Item{}
	var code, typ, photoMime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, ext_id, name, code, brand, quantity, type, photo_mime, created_at, updated_at
		 FROM items WHERE ext_id = ?`, extID,
	).Scan(&item.RowID, &item.ID, &item.Name, &code, &item.Brand, &item.Quantity, &typ, &photoMime, &item.CreatedAt, &item.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	item.Code = code.String
	item.Type = typ.String
	item.PhotoMime = photoMime.String
	return item, nil
}

// ListItems returns all items ordered by name.
func ListItems(ctx context.Context, db *sql.DB) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, ext_id, name, code, brand, quantity, type, photo_mime, created_at, updated_at
		 FROM items ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var item model.Item
		var code, typ, photoMime sql.NullString
		if err := rows.Scan(&item.RowID, &item.ID, &item.Name, &code, &item.Brand, &item.Quantity, &typ, &photoMime, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		item.Code = code.String
		item.Type = typ.String
		item.PhotoMime = photoMime.String
		items = append(items, item)
	}
	return items, rows.Err()
}

// SetItemPhoto sets an item's photo data.
func SetItemPhoto(ctx context.Context, db *sql.DB, extID string, photo []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET photo = ?, photo_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE ext_id = ?`,
		photo, mime, extID,
	)
	if err != nil {
		return fmt.Errorf("setting item photo: %w", err)
	}
	return nil
}

// GetItemPhoto returns an item's photo data and MIME type.
func GetItemPhoto(ctx context.Context, db *sql.DB, extID string) ([]byte, string, error) {
	var photo []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT photo, photo_mime FROM items WHERE ext_id = ?`, extID,
	).Scan(&photo, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item photo: %w", err)
	}
	return photo, mime.String, nil
}
