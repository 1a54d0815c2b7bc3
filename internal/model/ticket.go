package model

import "time"

// Ticket kinds.
const (
	TicketTake   = "take"
	TicketReturn = "return"
)

// Ticket is an immutable record of a take or return transaction.
// Tickets reference items by external ID and are never updated or deleted.
type Ticket struct {
	RowID       int64     `json:"-"`
	ID          string    `json:"id"`
	Kind        string    `json:"type"`
	ItemID      string    `json:"itemId"`
	Username    string    `json:"username"`
	Qty         int       `json:"qty"`
	Destination string    `json:"destination,omitempty"`
	Signature   string    `json:"signature"`
	Date        time.Time `json:"date"`

	// Return-only fields. ForcedReturn marks a return accepted despite
	// exceeding the user's computed balance; OriginalUserTaken snapshots
	// that balance at the time of the operation, since it cannot be
	// reconstructed later without replaying history up to that point.
	ForcedReturn      bool `json:"forcedReturn,omitempty"`
	OriginalUserTaken *int `json:"originalUserTaken,omitempty"`
}
