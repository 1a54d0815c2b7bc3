// Package notify pushes change notifications to connected WebSocket clients.
//
// Notifications are bare topic strings with no payload and no delivery
// guarantee: clients that are not connected when a topic fires never see it,
// and a slow client simply misses messages. Subscribers are expected to
// re-fetch state over the regular API when a topic arrives.
package notify

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait = 5 * time.Second

	// sendBuffer bounds per-subscriber queueing; when full, further
	// broadcasts to that subscriber are dropped rather than blocking.
	sendBuffer = 8
)

// Hub fans out topic broadcasts to all connected subscribers.
type Hub struct {
	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[string]chan string
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			// The API is served cross-origin from static hosting.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subscribers: make(map[string]chan string),
	}
}

// Broadcast queues a topic for every connected subscriber. It never blocks:
// subscribers with a full queue are skipped.
func (h *Hub) Broadcast(topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subscribers {
		select {
		case ch <- topic:
		default:
			slog.Warn("dropping notification for slow subscriber", "id", id, "topic", topic)
		}
	}
}

// SubscriberCount returns the number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// ServeHTTP upgrades the request to a WebSocket and streams broadcast topics
// as text messages until the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error response.
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	id := uuid.NewString()
	ch := make(chan string, sendBuffer)

	h.mu.Lock()
	h.subscribers[id] = ch
	h.mu.Unlock()

	slog.Info("subscriber connected", "id", id)

	defer func() {
		h.mu.Lock()
		delete(h.subscribers, id)
		h.mu.Unlock()
		conn.Close()
		slog.Info("subscriber disconnected", "id", id)
	}()

	// Drain (and discard) client messages so pings and close frames are
	// processed; close ends the write loop below.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case topic := <-ch:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(topic)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
