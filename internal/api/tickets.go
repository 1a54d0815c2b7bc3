package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielvc/panol/internal/ledger"
	"github.com/danielvc/panol/internal/model"
	"github.com/danielvc/panol/internal/store"
)

// TicketsHandler handles ledger endpoints. All validation and balance logic
// lives in the ledger service; handlers only translate requests and errors.
type TicketsHandler struct {
	DB     *sql.DB
	Ledger *ledger.Service
}

type takeRequest struct {
	ItemID      string `json:"itemId"`
	Username    string `json:"username"`
	Qty         int    `json:"qty"`
	Destination string `json:"destination"`
	Signature   string `json:"signature"`
}

type returnRequest struct {
	ItemID      string `json:"itemId"`
	Username    string `json:"username"`
	Qty         int    `json:"qty"`
	Destination string `json:"destination"`
	Signature   string `json:"signature"`
	Force       bool   `json:"force"`
}

// List handles GET /api/tickets with optional item_id and username filters.
func (h *TicketsHandler) List(w http.ResponseWriter, r *http.Request) {
	itemID := r.URL.Query().Get("item_id")
	username := r.URL.Query().Get("username")

	tickets, err := store.ListTickets(r.Context(), h.DB, itemID, username)
	if err != nil {
		slog.Error("listing tickets", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list tickets")
		return
	}
	if tickets == nil {
		tickets = []model.Ticket{}
	}
	jsonResponse(w, http.StatusOK, tickets)
}

// Take handles POST /api/take.
func (h *TicketsHandler) Take(w http.ResponseWriter, r *http.Request) {
	var req takeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ticket, err := h.Ledger.Take(r.Context(), ledger.TakeRequest{
		ItemID:      req.ItemID,
		Username:    req.Username,
		Qty:         req.Qty,
		Destination: req.Destination,
		Signature:   req.Signature,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	slog.Info("take recorded", "ticket", ticket.ID, "item", ticket.ItemID,
		"user", ticket.Username, "qty", ticket.Qty)
	jsonResponse(w, http.StatusCreated, ticket)
}

// Return handles POST /api/return.
func (h *TicketsHandler) Return(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ticket, err := h.Ledger.Return(r.Context(), ledger.ReturnRequest{
		ItemID:      req.ItemID,
		Username:    req.Username,
		Qty:         req.Qty,
		Destination: req.Destination,
		Signature:   req.Signature,
		Force:       req.Force,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	slog.Info("return recorded", "ticket", ticket.ID, "item", ticket.ItemID,
		"user", ticket.Username, "qty", ticket.Qty, "forced", ticket.ForcedReturn)
	jsonResponse(w, http.StatusCreated, ticket)
}

// writeLedgerError maps the ledger error taxonomy to status codes:
// validation and business-rule violations → 400, unknown item → 404,
// anything unexpected → 500.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsValidation(err):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInsufficientStock), errors.Is(err, ledger.ErrInsufficientBalance):
		jsonError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("ledger operation failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}
