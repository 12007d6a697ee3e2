package live

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Priya8975/subscription-service/internal/metrics"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// Activity event types.
const (
	EventSubscribed   = "subscribed"
	EventUnsubscribed = "unsubscribed"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ActivityEvent is a subscription change pushed to dashboard clients.
type ActivityEvent struct {
	Type      string    `json:"type"`
	Email     string    `json:"email"`
	Source    string    `json:"source,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub fans activity events out to every connected websocket client.
// Slow clients whose buffer fills up are dropped.
type Hub struct {
	clients    map[*client]struct{}
	mu         sync.RWMutex
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	logger     *slog.Logger
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run is the hub's event loop. It returns when ctx is cancelled, closing
// every client's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				h.remove(c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.LiveClients.Set(float64(n))
			h.logger.Debug("live client connected", "total_clients", n)

		case c := <-h.unregister:
			h.mu.Lock()
			h.remove(c)
			n := len(h.clients)
			h.mu.Unlock()
			metrics.LiveClients.Set(float64(n))
			h.logger.Debug("live client disconnected", "total_clients", n)

		case message := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					h.remove(c)
				}
			}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.LiveClients.Set(float64(n))
		}
	}
}

// remove must be called with h.mu held.
func (h *Hub) remove(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast queues an event for all clients. It never blocks; events are
// dropped when the broadcast buffer is full.
func (h *Hub) Broadcast(event ActivityEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal activity event", "error", err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("live broadcast channel full, dropping event", "type", event.Type)
	}
}

// HandleWebSocket upgrades the connection and registers the client.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.forward()
	go c.drain()
}

// Connection timing. Pings go out well inside the pong deadline.
const (
	writeTimeout   = 10 * time.Second
	pongTimeout    = 60 * time.Second
	pingInterval   = pongTimeout / 2
	maxInboundSize = 512
)

// drain discards inbound frames until the connection fails so pong
// handling keeps the read deadline moving. The client is then unregistered.
func (c *client) drain() {
	defer c.leave()

	c.conn.SetReadLimit(maxInboundSize)
	extend := func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	}
	extend("")
	c.conn.SetPongHandler(extend)

	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

func (c *client) leave() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
	c.conn.Close()
}

// forward writes queued events to the connection and pings it on an
// interval. A closed send channel ends the stream with a close frame.
func (c *client) forward() {
	pings := time.NewTicker(pingInterval)
	defer pings.Stop()
	defer c.conn.Close()

	for {
		var err error
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.write(websocket.CloseMessage, nil)
				return
			}
			err = c.write(websocket.TextMessage, msg)
		case <-pings.C:
			err = c.write(websocket.PingMessage, nil)
		}
		if err != nil {
			c.hub.logger.Debug("live client write failed", "error", err)
			return
		}
	}
}

func (c *client) write(messageType int, payload []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(messageType, payload)
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
