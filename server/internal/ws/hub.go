package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"

	"github.com/startingnine/startingnine/pkg/types"
	"github.com/startingnine/startingnine/server/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16
)

// Event names sent to clients.
const (
	EventMatchups = "matchups"
	EventWaiting  = "waiting"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins; callers should apply CORS at the reverse-proxy level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event     string            `json:"event"`
	UpdatedAt string            `json:"updated_at,omitempty"` // RFC3339
	Data      *types.DailyCache `json:"data,omitempty"`
}

// Hub manages WebSocket client connections and pushes the daily matchup
// cache to all of them whenever the collector rewrites it.
type Hub struct {
	store    *store.Store
	interval time.Duration

	mu       sync.RWMutex
	clients  map[*client]struct{}
	lastSent time.Time // write time of the cache last broadcast
}

// client represents one connected WebSocket client.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// New creates a Hub that polls st every interval. The file as it exists now
// counts as already sent; connecting clients receive it on connect.
func New(st *store.Store, interval time.Duration) *Hub {
	h := &Hub{
		store:    st,
		interval: interval,
		clients:  make(map[*client]struct{}),
	}
	if _, at, err := st.Matchups(); err == nil {
		h.lastSent = at
	}
	return h
}

// Run starts the polling loop. Each tick it checks the cache's write time
// and broadcasts the new cache when it changed. Run blocks until ctx is
// cancelled, then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-t.C:
			h.poll()
		}
	}
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client.
// It sends the current cache (or a waiting event) immediately on connect,
// then continues to receive broadcasts. Blocks until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}
	// Queue the current state before the client becomes visible to
	// broadcast and closeAll.
	if data, err := h.currentMessage(); err == nil {
		c.send <- data
	}
	h.register(c)
	defer h.unregister(c)

	go c.writePump()
	c.readPump() // blocks until connection closes
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// poll broadcasts the cache if it was rewritten since the last broadcast.
func (h *Hub) poll() {
	cache, at, err := h.store.Matchups()
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("ws: read matchups failed", "err", err)
		}
		return
	}

	h.mu.Lock()
	changed := !at.Equal(h.lastSent)
	h.lastSent = at
	h.mu.Unlock()
	if !changed {
		return
	}

	data, err := encode(&cache, at)
	if err != nil {
		slog.Error("ws: encode message failed", "err", err)
		return
	}
	h.broadcast(data)
}

// broadcast sends under the read lock: a client's channel is only closed
// under the write lock, after it has left the map.
func (h *Hub) broadcast(data []byte) {
	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	// Clients whose outgoing buffer is full are disconnected.
	for _, c := range slow {
		h.unregister(c)
	}
}

func (h *Hub) currentMessage() ([]byte, error) {
	cache, at, err := h.store.Matchups()
	if errors.Is(err, store.ErrNotFound) {
		return json.Marshal(Message{Event: EventWaiting})
	}
	if err != nil {
		return nil, err
	}
	return encode(&cache, at)
}

func encode(cache *types.DailyCache, at time.Time) ([]byte, error) {
	return json.Marshal(Message{
		Event:     EventMatchups,
		UpdatedAt: at.UTC().Format(time.RFC3339),
		Data:      cache,
	})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if !ok {
				// Channel was closed (hub is shutting down or client removed).
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames from the connection to process control messages (pong,
// close) and detect disconnects. Blocks until the connection closes.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
