package utils

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketHub fans sync events out to connected UI clients.
type WebSocketHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients: make(map[*websocket.Conn]bool),
	}
}

func (h *WebSocketHub) AddClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
}

func (h *WebSocketHub) RemoveClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

// Broadcast sends the event to every connected client. Clients that
// fail the write (or are too slow for the deadline) are dropped.
func (h *WebSocketHub) Broadcast(event WebSocketEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(100 * time.Millisecond))
		if err := conn.WriteJSON(event); err != nil {
			log.Printf("WS: dropping client after write failure: %v", err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}
