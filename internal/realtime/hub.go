// internal/realtime/hub.go

// Package realtime pushes server events to connected WebSocket clients.
//
// The Hub goroutine is the only owner of the connection set: registration,
// removal, delivery and liveness checks all run on it, so the set needs no
// lock. Delivery is fire-and-forget and nothing is replayed to clients that
// connect later.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"ermakplan-back/internal/logs"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	TypeConnection     = "connection"
	TypeLocationReport = "location_report"
	TypeNotification   = "notification"
	TypeReminder       = "reminder"

	ActionOpen   = "open"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionDue    = "due"
)

const (
	writeWait      = 5 * time.Second
	sendBufferSize = 32
	maxMessageSize = 4096
)

// Event is the message shape pushed to clients.
type Event struct {
	Type   string      `json:"type"`
	Action string      `json:"action"`
	Data   interface{} `json:"data"`
}

// Publisher is what handlers need from the hub.
type Publisher interface {
	Broadcast(ev Event)
	SendToUser(userID uint, ev Event)
}

type delivery struct {
	userID  uint // zero means every client
	payload []byte
}

type Hub struct {
	pingInterval time.Duration
	upgrader     websocket.Upgrader

	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	pong       chan *Client
	deliver    chan delivery
	count      chan chan int
	done       chan struct{}
}

func NewHub(pingInterval time.Duration, allowedOrigins []string) *Hub {
	return &Hub{
		pingInterval: pingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		pong:       make(chan *Client),
		deliver:    make(chan delivery, 256),
		count:      make(chan chan int),
		done:       make(chan struct{}),
	}
}

// Run owns the connection set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			c.alive = true
			h.enqueue(c, mustMarshal(Event{
				Type:   TypeConnection,
				Action: ActionOpen,
				Data:   gin.H{"message": "Connected to ErmakPlan live updates"},
			}))
			logs.Log.WithFields(logrus.Fields{
				"user_id": c.userID,
				"clients": len(h.clients),
			}).Debug("WebSocket client connected")

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
			}

		case c := <-h.pong:
			if _, ok := h.clients[c]; ok {
				c.alive = true
			}

		case d := <-h.deliver:
			for c := range h.clients {
				if d.userID == 0 || c.userID == d.userID {
					h.enqueue(c, d.payload)
				}
			}

		case reply := <-h.count:
			reply <- len(h.clients)

		case <-ticker.C:
			h.checkLiveness()
		}
	}
}

// Broadcast pushes ev to every open connection.
func (h *Hub) Broadcast(ev Event) {
	h.publish(delivery{payload: mustMarshal(ev)})
}

// SendToUser pushes ev to the connections opened by userID.
func (h *Hub) SendToUser(userID uint, ev Event) {
	if userID == 0 {
		return
	}
	h.publish(delivery{userID: userID, payload: mustMarshal(ev)})
}

// ClientCount reports the number of registered connections.
func (h *Hub) ClientCount() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

// ServeWS upgrades the request and registers the connection for the
// authenticated user.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logs.Log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		userID: c.GetUint("userID"),
		send:   make(chan []byte, sendBufferSize),
		ping:   make(chan struct{}, 1),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (h *Hub) publish(d delivery) {
	select {
	case h.deliver <- d:
	case <-h.done:
	}
}

// checkLiveness evicts connections that missed the previous ping and asks
// the rest to ping. The write itself happens in writePump.
func (h *Hub) checkLiveness() {
	for c := range h.clients {
		if !c.alive {
			logs.Log.WithField("user_id", c.userID).Info("Terminating unresponsive WebSocket client")
			h.drop(c)
			continue
		}
		c.alive = false
		select {
		case c.ping <- struct{}{}:
		default:
		}
	}
}

func (h *Hub) enqueue(c *Client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		logs.Log.WithField("user_id", c.userID).Debug("WebSocket send buffer full, dropping event")
	}
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.send)
	c.conn.Close()
}

func mustMarshal(ev Event) []byte {
	payload, err := json.Marshal(ev)
	if err != nil {
		logs.Log.WithError(err).WithField("type", ev.Type).Error("Failed to encode event")
		return []byte(`{}`)
	}
	return payload
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}
