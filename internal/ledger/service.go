// Package ledger implements the balance engine: it validates and applies
// take/return operations against catalog stock and per-user balances.
//
// Balances are never stored. They are always recomputed as a signed sum over
// the (item, user) ticket history, which is commutative, so the order tickets
// are read in does not matter. This trades read cost for write simplicity and
// rules out balance drift from partial updates.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/danielvc/panol/internal/ids"
	"github.com/danielvc/panol/internal/model"
)

// Notification topics passed to post-commit hooks.
const (
	TopicItems   = "items:update"
	TopicTickets = "tickets:update"
)

// Hook is invoked after a mutation has committed. Hooks must not block.
type Hook func(topic string)

// Service applies take/return operations. It holds its dependencies
// explicitly; nothing is reached through package globals.
type Service struct {
	db    *sql.DB
	hooks []Hook
}

// New creates a ledger service. Hooks run after each successful mutation,
// once per changed topic, and never on failure.
func New(db *sql.DB, hooks ...Hook) *Service {
	return &Service{db: db, hooks: hooks}
}

// TakeRequest describes a checkout of qty units of an item by a user.
type TakeRequest struct {
	ItemID      string
	Username    string
	Qty         int
	Destination string
	Signature   string
}

// ReturnRequest describes a return. Force records the return even when qty
// exceeds the user's computed balance, for administrative correction.
type ReturnRequest struct {
	ItemID      string
	Username    string
	Qty         int
	Destination string
	Signature   string
	Force       bool
}

// Balance returns the net quantity a user currently holds for an item:
// the sum of take quantities minus return quantities over all their tickets.
// It can be negative if recorded history is inconsistent; it is not clamped.
func (s *Service) Balance(ctx context.Context, itemID, username string) (int, error) {
	return userBalance(ctx, s.db, itemID, username)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func userBalance(ctx context.Context, q querier, itemID, username string) (int, error) {
	var net int
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN kind = 'take' THEN qty ELSE -qty END), 0)
		 FROM tickets WHERE item_id = ? AND username = ?`,
		itemID, username,
	).Scan(&net)
	if err != nil {
		return 0, fmt.Errorf("computing user balance: %w", err)
	}
	return net, nil
}

// Take decrements the item's quantity and appends a take ticket, atomically.
//
// The quantity update is conditional on sufficient stock, so two concurrent
// takes can never oversell: the second either sees the decremented quantity
// or fails the condition.
func (s *Service) Take(ctx context.Context, req TakeRequest) (*model.Ticket, error) {
	if err := validate(req.ItemID, req.Username, req.Qty, req.Signature); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE items SET quantity = quantity - ?, updated_at = CURRENT_TIMESTAMP
		 WHERE ext_id = ? AND quantity >= ?`,
		req.Qty, req.ItemID, req.Qty,
	)
	if err != nil {
		return nil, fmt.Errorf("decrementing stock: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking stock update: %w", err)
	}
	if affected == 0 {
		// Either the item doesn't exist or the stock check failed.
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM items WHERE ext_id = ?`, req.ItemID,
		).Scan(&count); err != nil {
			return nil, fmt.Errorf("checking item existence: %w", err)
		}
		if count == 0 {
			return nil, ErrNotFound
		}
		return nil, ErrInsufficientStock
	}

	ticket := &model.Ticket{
		ID:          ids.New("t"),
		Kind:        model.TicketTake,
		ItemID:      req.ItemID,
		Username:    req.Username,
		Qty:         req.Qty,
		Destination: req.Destination,
		Signature:   req.Signature,
		Date:        time.Now().UTC(),
	}
	if err := appendTicket(ctx, tx, ticket); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing take: %w", err)
	}

	s.notify(TopicItems, TopicTickets)
	return ticket, nil
}

// Return increments the item's quantity and appends a return ticket,
// atomically. Unless forced, the return is rejected when qty exceeds the
// user's computed balance. The pre-operation balance is recorded on the
// ticket either way: it cannot be reconstructed later without replaying
// history up to this point in time.
func (s *Service) Return(ctx context.Context, req ReturnRequest) (*model.Ticket, error) {
	if err := validate(req.ItemID, req.Username, req.Qty, req.Signature); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Update quantity first: this takes SQLite's write lock, so the balance
	// read below is serialized against concurrent mutations. A rollback
	// discards the update if the balance check fails.
	result, err := tx.ExecContext(ctx,
		`UPDATE items SET quantity = quantity + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE ext_id = ?`,
		req.Qty, req.ItemID,
	)
	if err != nil {
		return nil, fmt.Errorf("incrementing stock: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking stock update: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	userTaken, err := userBalance(ctx, tx, req.ItemID, req.Username)
	if err != nil {
		return nil, err
	}
	if !req.Force && req.Qty > userTaken {
		return nil, ErrInsufficientBalance
	}

	ticket := &model.Ticket{
		ID:                ids.New("t"),
		Kind:              model.TicketReturn,
		ItemID:            req.ItemID,
		Username:          req.Username,
		Qty:               req.Qty,
		Destination:       req.Destination,
		Signature:         req.Signature,
		Date:              time.Now().UTC(),
		ForcedReturn:      req.Force,
		OriginalUserTaken: &userTaken,
	}
	if err := appendTicket(ctx, tx, ticket); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing return: %w", err)
	}

	s.notify(TopicItems, TopicTickets)
	return ticket, nil
}

func validate(itemID, username string, qty int, signature string) error {
	if itemID == "" || username == "" {
		return validationf("itemId and username are required")
	}
	if qty <= 0 {
		return validationf("qty must be a positive integer")
	}
	if strings.TrimSpace(signature) == "" {
		return validationf("signature is required")
	}
	return nil
}

func appendTicket(ctx context.Context, tx *sql.Tx, t *model.Ticket) error {
	var originalUserTaken sql.NullInt64
	if t.OriginalUserTaken != nil {
		originalUserTaken = sql.NullInt64{Int64: int64(*t.OriginalUserTaken), Valid: true}
	}
	result, err := tx.ExecContext(ctx,
		`INSERT INTO tickets (ext_id, kind, item_id, username, qty, destination, signature,
		                      created_at, forced_return, original_user_taken)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Kind, t.ItemID, t.Username, t.Qty, t.Destination, t.Signature,
		t.Date, t.ForcedReturn, originalUserTaken,
	)
	if err != nil {
		return fmt.Errorf("appending ticket: %w", err)
	}
	t.RowID, _ = result.LastInsertId()
	return nil
}

func (s *Service) notify(topics ...string) {
	for _, topic := range topics {
		for _, hook := range s.hooks {
			hook(topic)
		}
	}
}
