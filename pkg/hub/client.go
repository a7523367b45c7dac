package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	// writeWait is how long to wait for a write to complete
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong response
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum message size allowed from clients
	maxMessageSize = 4 * 1024
)

// Client represents a single websocket connection.
type Client struct {
	// ID identifies the client in logs.
	ID string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewClient creates a client and registers it with the hub.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	client := &Client{
		ID:   uuid.NewString(),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	hub.register <- client
	return client
}

// Run starts the client's read and write pumps. Call from the websocket
// handler; blocks until the connection closes.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump keeps the connection alive and detects disconnection. Status
// clients never send application messages.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump writes messages to the connection. Only this goroutine writes
// to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel - send close frame
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
