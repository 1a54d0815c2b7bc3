package model

import "time"

// Item represents a stocked catalog entry with a tracked quantity.
// ID is the external identifier clients reference; RowID is internal.
type Item struct {
	RowID     int64     `json:"-"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code,omitempty"`
	Brand     string    `json:"brand"`
	Quantity  int       `json:"quantity"`
	Type      string    `json:"type,omitempty"`
	PhotoMime string    `json:"photo_mime,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
