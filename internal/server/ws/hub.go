// Package ws bridges the event bus to WebSocket clients. Every committed
// market operation is broadcast as a JSON event; clients can narrow the
// stream to specific event types or market ids.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/ghostodds/internal/domain"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 4096

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 256
)

// upgrader configures the WebSocket upgrade parameters.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS-equivalent origin policy is enforced by the HTTP middleware.
		return true
	},
}

// client represents a single WebSocket connection and its filter state.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu      sync.RWMutex
	types   map[domain.EventType]bool // empty means all types
	markets map[uint64]bool           // empty means all markets
}

// filterMsg is the JSON message a client sends to narrow its stream.
// {"types":["market_resolved"],"markets":[3,7]} with empty lists meaning all.
type filterMsg struct {
	Types   []domain.EventType `json:"types"`
	Markets []uint64           `json:"markets"`
}

// Hub manages connected WebSocket clients and broadcasts events from the
// event bus to every client whose filter matches.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan domain.Event
	register   chan *client
	unregister chan *client
	bus        domain.EventBus
	mu         sync.RWMutex
	logger     *slog.Logger
}

// NewHub creates a hub that bridges the given event bus to WebSocket clients.
func NewHub(bus domain.EventBus, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan domain.Event, sendBufferSize),
		register:   make(chan *client),
		unregister: make(chan *client),
		bus:        bus,
		logger:     logger.With(slog.String("component", "ws")),
	}
}

// Run subscribes to the event bus and dispatches until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	events, err := h.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	h.logger.Info("ws: hub started")

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()

		case e, ok := <-events:
			if !ok {
				h.closeAll()
				return nil
			}
			h.dispatch(e)

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("ws: client connected", slog.Int("clients", n))

		case c := <-h.unregister:
			h.mu.Lock()
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("ws: client disconnected", slog.Int("clients", n))
		}
	}
}

// dispatch encodes the event once and queues it on every matching client.
// Clients whose send buffer is full are dropped rather than blocking the hub.
func (h *Hub) dispatch(e domain.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		h.logger.Warn("ws: event encode failed", slog.String("error", err.Error()))
		return
	}

	h.mu.RLock()
	var stale []*client
	for c := range h.clients {
		if !c.wants(e) {
			continue
		}
		select {
		case c.send <- data:
		default:
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.drop(c)
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// HandleWS upgrades the HTTP connection and registers the client.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		types:   make(map[domain.EventType]bool),
		markets: make(map[uint64]bool),
	}

	h.register <- c

	go c.writePump()
	go c.readPump()
}

// wants reports whether the event passes the client's filters.
func (c *client) wants(e domain.Event) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.types) > 0 && !c.types[e.Type] {
		return false
	}
	if len(c.markets) > 0 && !c.markets[e.MarketID] {
		return false
	}
	return true
}

// readPump consumes filter messages until the connection drops.
func (c *client) readPump() {
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
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg filterMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		c.mu.Lock()
		c.types = make(map[domain.EventType]bool, len(msg.Types))
		for _, t := range msg.Types {
			c.types[t] = true
		}
		c.markets = make(map[uint64]bool, len(msg.Markets))
		for _, id := range msg.Markets {
			c.markets[id] = true
		}
		c.mu.Unlock()
	}
}

// writePump flushes queued events and keeps the connection alive with pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
