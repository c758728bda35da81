// internal/realtime/client.go
package realtime

import (
	"time"

	"github.com/gorilla/websocket"
)

// Client is one live connection. alive is only touched by the hub goroutine.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uint
	send   chan []byte
	ping   chan struct{}
	alive  bool
}

// readPump discards client messages and forwards pongs to the hub. It
// unregisters the client when the connection closes.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		select {
		case c.hub.pong <- c:
		case <-c.hub.done:
		}
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump writes queued events and pings until the hub closes the send
// channel. Failed writes are not retried; the liveness check evicts the
// connection.
func (c *Client) writePump() {
	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-c.ping:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
