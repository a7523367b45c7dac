// Package hub fans face and speech status out to websocket clients using
// the channel-based broadcast pattern.
package hub

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Hub maintains the set of active clients and broadcasts status messages
// to them.
type Hub struct {
	logger *slog.Logger

	// Registered clients
	clients map[*Client]bool

	// Inbound messages to broadcast
	broadcast chan []byte

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex for client count (read-only access from outside)
	mu sync.RWMutex
}

// New creates a status hub.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:     logger.With("component", "hub"),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop. Call in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client connected", "id", client.ID, "total", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client disconnected", "id", client.ID, "remaining", count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's buffer is full, they are too slow.
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("dropped slow client", "id", client.ID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends a message to all connected clients. Drops the message
// when the broadcast buffer is full.
func (h *Hub) Broadcast(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("broadcast buffer full, dropping message")
	}
}

// BroadcastJSON encodes and broadcasts a JSON message.
func (h *Hub) BroadcastJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(data)
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
