// Package ws pushes a user's live journal events (trade created, import
// finished, ...) to their open WebSocket connections.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/alanyoungcy/tradejournal/internal/server/middleware"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 1024

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 64
)

// userPattern matches every per-user channel on the signal bus.
var userPattern = domain.UserChannel("*")

// client represents a single WebSocket connection of one user.
type client struct {
	hub    *Hub
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

// Hub fans events from the signal bus out to the connections of the user
// each event belongs to.
type Hub struct {
	clients    map[string]map[*client]bool
	register   chan *client
	unregister chan *client
	done       chan struct{}
	bus        domain.SignalBus
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewHub creates a hub. Upgrades are accepted from allowedOrigins only; an
// empty list accepts any origin.
func NewHub(bus domain.SignalBus, allowedOrigins []string, logger *slog.Logger) *Hub {
	h := &Hub{
		clients:    make(map[string]map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		bus:        bus,
		logger:     logger.With(slog.String("component", "ws_hub")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowedOrigins) == 0 {
				return true
			}
			for _, o := range allowedOrigins {
				if o == "*" || strings.EqualFold(o, origin) {
					return true
				}
			}
			return false
		},
	}
	return h
}

// Run subscribes to the per-user channels and serves registrations and
// deliveries until ctx is cancelled or the subscription ends. Run must be
// called at most once; once it returns every connection is closed and new
// upgrades are refused.
func (h *Hub) Run(ctx context.Context) error {
	defer h.stop()

	msgs, err := h.bus.Subscribe(ctx, userPattern)
	if err != nil {
		return err
	}
	h.logger.Info("ws: subscribed", slog.String("pattern", userPattern))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case c := <-h.register:
			if h.clients[c.userID] == nil {
				h.clients[c.userID] = make(map[*client]bool)
			}
			h.clients[c.userID][c] = true
			h.logger.Debug("ws: client connected",
				slog.String("user_id", c.userID),
				slog.Int("user_clients", len(h.clients[c.userID])),
			)

		case c := <-h.unregister:
			if conns, ok := h.clients[c.userID]; ok && conns[c] {
				delete(conns, c)
				close(c.send)
				if len(conns) == 0 {
					delete(h.clients, c.userID)
				}
			}

		case msg, ok := <-msgs:
			if !ok {
				h.logger.Warn("ws: subscription closed")
				return nil
			}
			h.deliver(msg)
		}
	}
}

// stop closes every client's send queue and releases goroutines waiting to
// join or leave.
func (h *Hub) stop() {
	for _, conns := range h.clients {
		for c := range conns {
			close(c.send)
		}
	}
	h.clients = make(map[string]map[*client]bool)
	close(h.done)
}

// join hands c to the run loop. It reports false once the hub has stopped.
func (h *Hub) join(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// leave hands c back to the run loop; after the hub stopped there is nothing
// left to deregister from.
func (h *Hub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// deliver forwards msg to every connection of the user its channel names.
func (h *Hub) deliver(msg domain.Message) {
	userID, ok := channelUser(msg.Channel)
	if !ok {
		return
	}
	for c := range h.clients[userID] {
		select {
		case c.send <- msg.Payload:
		default:
			h.logger.Warn("ws: dropping message for slow client", slog.String("user_id", userID))
		}
	}
}

func channelUser(channel string) (string, bool) {
	prefix := strings.TrimSuffix(userPattern, "*")
	userID, ok := strings.CutPrefix(channel, prefix)
	return userID, ok && userID != ""
}

// HandleWS upgrades an authenticated request to a WebSocket connection and
// registers it for the caller's events. It must sit behind middleware.Auth.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:    h,
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
	}
	c.sendHello()
	if !h.join(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// sendHello queues a greeting so clients can mark the connection healthy
// before any event arrives.
func (c *client) sendHello() {
	msg, err := json.Marshal(map[string]any{
		"type": "hello",
		"data": map[string]string{"userId": c.userID},
		"at":   time.Now().UTC(),
	})
	if err != nil {
		return
	}
	c.send <- msg
}

// readPump drains the connection so pongs and close frames are processed.
// Clients have nothing to send; any payload is ignored.
func (c *client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("ws: unexpected close", slog.String("error", err.Error()))
			}
			return
		}
	}
}

// writePump pumps JSON events to the connection as text frames and pings
// periodically for keepalive.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
