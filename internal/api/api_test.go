package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danielvc/panol/internal/db"
	"github.com/danielvc/panol/internal/ledger"
	"github.com/danielvc/panol/internal/model"
	"github.com/danielvc/panol/internal/notify"
)

func setupTestServer(t *testing.T) (*httptest.Server, *sql.DB) {
	t.Helper()
	database := db.NewTestDB(t)
	hub := notify.NewHub()
	svc := ledger.New(database, hub.Broadcast)
	server := httptest.NewServer(NewRouter(database, svc, hub))
	t.Cleanup(server.Close)
	return server, database
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func createTestItem(t *testing.T, server *httptest.Server, name string, quantity int) model.Item {
	t.Helper()
	resp := postJSON(t, server.URL+"/api/items", map[string]any{
		"name":     name,
		"brand":    "BrandX",
		"quantity": quantity,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("creating item: expected 201, got %d", resp.StatusCode)
	}
	return decodeBody[model.Item](t, resp)
}

func getItem(t *testing.T, server *httptest.Server, id string) model.Item {
	t.Helper()
	resp, err := http.Get(server.URL + "/api/items/" + id)
	if err != nil {
		t.Fatalf("GET item: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET item: expected 200, got %d", resp.StatusCode)
	}
	return decodeBody[model.Item](t, resp)
}

func TestCreateItemGeneratesIDAndCode(t *testing.T) {
	server, _ := setupTestServer(t)

	item := createTestItem(t, server, "Hammer", 10)
	if len(item.ID) != 8 || item.ID[:4] != "HAMM" {
		t.Errorf("expected name-derived id HAMM####, got %q", item.ID)
	}
	if item.Code != item.ID[:4]+"-"+item.ID[4:] {
		t.Errorf("expected derived code, got %q", item.Code)
	}
	if item.Quantity != 10 {
		t.Errorf("expected quantity 10, got %d", item.Quantity)
	}
}

func TestCreateItemMissingBrand(t *testing.T) {
	server, _ := setupTestServer(t)

	resp := postJSON(t, server.URL+"/api/items", map[string]any{"name": "Hammer"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for missing brand, got %d", resp.StatusCode)
	}
}

func TestCreateItemCollidingIDDisambiguated(t *testing.T) {
	server, _ := setupTestServer(t)

	resp := postJSON(t, server.URL+"/api/items", map[string]any{
		"id": "TOOL0001", "name": "Hammer", "brand": "BrandX",
	})
	first := decodeBody[model.Item](t, resp)

	resp = postJSON(t, server.URL+"/api/items", map[string]any{
		"id": "TOOL0001", "name": "Other Hammer", "brand": "BrandY",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for colliding id, got %d", resp.StatusCode)
	}
	second := decodeBody[model.Item](t, resp)

	if first.ID != "TOOL0001" {
		t.Errorf("expected first item to keep explicit id, got %q", first.ID)
	}
	if second.ID == first.ID {
		t.Error("expected disambiguated id for second item, got a duplicate")
	}
	if !strings.HasPrefix(second.ID, "TOOL0001-") {
		t.Errorf("expected suffix-disambiguated id, got %q", second.ID)
	}
}

func TestGetItemNotFound(t *testing.T) {
	server, _ := setupTestServer(t)

	resp, err := http.Get(server.URL + "/api/items/NOPE1234")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestTakeReturnFlow(t *testing.T) {
	server, _ := setupTestServer(t)
	item := createTestItem(t, server, "Hammer", 10)

	// Take 3.
	resp := postJSON(t, server.URL+"/api/take", map[string]any{
		"itemId": item.ID, "username": "alice", "qty": 3, "signature": "alice",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("take: expected 201, got %d", resp.StatusCode)
	}
	ticket := decodeBody[model.Ticket](t, resp)
	if ticket.Kind != model.TicketTake || ticket.Qty != 3 {
		t.Errorf("unexpected ticket: %+v", ticket)
	}
	if got := getItem(t, server, item.ID); got.Quantity != 7 {
		t.Errorf("expected quantity 7, got %d", got.Quantity)
	}

	// Non-forced over-return fails with 400.
	resp = postJSON(t, server.URL+"/api/return", map[string]any{
		"itemId": item.ID, "username": "alice", "qty": 5, "signature": "alice",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("over-return: expected 400, got %d", resp.StatusCode)
	}

	// Forced return succeeds and records the snapshot.
	resp = postJSON(t, server.URL+"/api/return", map[string]any{
		"itemId": item.ID, "username": "alice", "qty": 5, "signature": "alice", "force": true,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("forced return: expected 201, got %d", resp.StatusCode)
	}
	returned := decodeBody[model.Ticket](t, resp)
	if !returned.ForcedReturn {
		t.Error("expected forcedReturn true")
	}
	if returned.OriginalUserTaken == nil || *returned.OriginalUserTaken != 3 {
		t.Errorf("expected originalUserTaken 3, got %v", returned.OriginalUserTaken)
	}
	if got := getItem(t, server, item.ID); got.Quantity != 12 {
		t.Errorf("expected quantity 12, got %d", got.Quantity)
	}
}

func TestTakeErrorMapping(t *testing.T) {
	server, _ := setupTestServer(t)
	item := createTestItem(t, server, "Hammer", 2)

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"unknown item", map[string]any{"itemId": "NOPE1234", "username": "alice", "qty": 1, "signature": "a"}, http.StatusNotFound},
		{"insufficient stock", map[string]any{"itemId": item.ID, "username": "alice", "qty": 5, "signature": "a"}, http.StatusBadRequest},
		{"missing signature", map[string]any{"itemId": item.ID, "username": "alice", "qty": 1, "signature": "  "}, http.StatusBadRequest},
		{"missing username", map[string]any{"itemId": item.ID, "qty": 1, "signature": "a"}, http.StatusBadRequest},
		{"zero qty", map[string]any{"itemId": item.ID, "username": "alice", "qty": 0, "signature": "a"}, http.StatusBadRequest},
		{"wrongly typed qty", map[string]any{"itemId": item.ID, "username": "alice", "qty": "three", "signature": "a"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		resp := postJSON(t, server.URL+"/api/take", tt.body)
		resp.Body.Close()
		if resp.StatusCode != tt.status {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.status, resp.StatusCode)
		}
	}

	// None of the failed takes may have touched the quantity.
	if got := getItem(t, server, item.ID); got.Quantity != 2 {
		t.Errorf("expected quantity unchanged at 2, got %d", got.Quantity)
	}
}

func TestListTicketsFiltered(t *testing.T) {
	server, _ := setupTestServer(t)
	hammer := createTestItem(t, server, "Hammer", 10)
	drill := createTestItem(t, server, "Drill", 10)

	for _, req := range []map[string]any{
		{"itemId": hammer.ID, "username": "alice", "qty": 1, "signature": "a"},
		{"itemId": hammer.ID, "username": "bob", "qty": 2, "signature": "b"},
		{"itemId": drill.ID, "username": "alice", "qty": 3, "signature": "a"},
	} {
		resp := postJSON(t, server.URL+"/api/take", req)
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("take: expected 201, got %d", resp.StatusCode)
		}
	}

	resp, _ := http.Get(server.URL + "/api/tickets")
	all := decodeBody[[]model.Ticket](t, resp)
	if len(all) != 3 {
		t.Errorf("expected 3 tickets, got %d", len(all))
	}

	resp, _ = http.Get(server.URL + "/api/tickets?item_id=" + hammer.ID)
	byItem := decodeBody[[]model.Ticket](t, resp)
	if len(byItem) != 2 {
		t.Errorf("expected 2 tickets for hammer, got %d", len(byItem))
	}

	resp, _ = http.Get(server.URL + "/api/tickets?item_id=" + hammer.ID + "&username=alice")
	byBoth := decodeBody[[]model.Ticket](t, resp)
	if len(byBoth) != 1 {
		t.Errorf("expected 1 ticket for hammer/alice, got %d", len(byBoth))
	}
}

func TestBalanceEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)
	item := createTestItem(t, server, "Hammer", 10)

	resp := postJSON(t, server.URL+"/api/take", map[string]any{
		"itemId": item.ID, "username": "alice", "qty": 4, "signature": "a",
	})
	resp.Body.Close()

	resp, _ = http.Get(server.URL + "/api/items/" + item.ID + "/balance?username=alice")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("balance: expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody[map[string]any](t, resp)
	if body["balance"].(float64) != 4 {
		t.Errorf("expected balance 4, got %v", body["balance"])
	}

	resp, _ = http.Get(server.URL + "/api/items/" + item.ID + "/balance")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without username, got %d", resp.StatusCode)
	}
}

func TestMutationsNotifySubscribers(t *testing.T) {
	server, _ := setupTestServer(t)
	item := createTestItem(t, server, "Hammer", 10)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing /ws: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// Give the hub a moment to register the subscriber.
	time.Sleep(50 * time.Millisecond)

	resp := postJSON(t, server.URL+"/api/take", map[string]any{
		"itemId": item.ID, "username": "alice", "qty": 1, "signature": "a",
	})
	resp.Body.Close()

	want := []string{"items:update", "tickets:update"}
	for _, topic := range want {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("reading notification: %v", err)
		}
		if string(msg) != topic {
			t.Errorf("expected topic %q, got %q", topic, msg)
		}
	}
}

func TestSubscribeThroughFullHandlerStack(t *testing.T) {
	// The binary serves LoggingMiddleware(NewRouter(...)), not the bare
	// router, so the upgrade must hijack through the status recorder.
	database := db.NewTestDB(t)
	hub := notify.NewHub()
	svc := ledger.New(database, hub.Broadcast)
	server := httptest.NewServer(LoggingMiddleware(NewRouter(database, svc, hub)))
	t.Cleanup(server.Close)

	item := createTestItem(t, server, "Hammer", 10)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing /ws through middleware: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	time.Sleep(50 * time.Millisecond)

	resp := postJSON(t, server.URL+"/api/take", map[string]any{
		"itemId": item.ID, "username": "alice", "qty": 1, "signature": "a",
	})
	resp.Body.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading notification: %v", err)
	}
	if string(msg) != "items:update" {
		t.Errorf("expected topic items:update, got %q", msg)
	}
}
