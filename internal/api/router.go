package api

import (
	"database/sql"
	"net/http"

	"github.com/danielvc/panol/internal/ledger"
	"github.com/danielvc/panol/internal/notify"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, svc *ledger.Service, hub *notify.Hub) http.Handler {
	mux := http.NewServeMux()

	itemsHandler := &ItemsHandler{DB: db, Ledger: svc}
	ticketsHandler := &TicketsHandler{DB: db, Ledger: svc}

	// Catalog.
	mux.HandleFunc("GET /api/items", itemsHandler.List)
	mux.HandleFunc("POST /api/items", itemsHandler.Create)
	mux.HandleFunc("GET /api/items/{id}", itemsHandler.Get)
	mux.HandleFunc("GET /api/items/{id}/balance", itemsHandler.Balance)
	mux.HandleFunc("PUT /api/items/{id}/photo", itemsHandler.UploadPhoto)
	mux.HandleFunc("GET /api/items/{id}/photo", itemsHandler.GetPhoto)

	// Ledger.
	mux.HandleFunc("GET /api/tickets", ticketsHandler.List)
	mux.HandleFunc("POST /api/take", ticketsHandler.Take)
	mux.HandleFunc("POST /api/return", ticketsHandler.Return)

	// Change notifications.
	mux.Handle("GET /ws", hub)

	return CORSMiddleware(mux)
}
