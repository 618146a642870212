package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/insider-one/order-confirmation-service/internal/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for development
		return true
	},
}

// DispatchFeed maintains the WebSocket connections that watch finished
// dispatches in real time.
type DispatchFeed struct {
	clients    map[*feedClient]bool
	broadcast  chan *DispatchEvent
	register   chan *feedClient
	unregister chan *feedClient
	logger     *slog.Logger
	mu         sync.RWMutex
}

type feedClient struct {
	feed   *DispatchFeed
	conn   *websocket.Conn
	send   chan []byte
	id     string
	filter *FeedFilter
}

// FeedFilter narrows which dispatch events a client receives
type FeedFilter struct {
	OrderIDs     []int64 `json:"order_ids,omitempty"`
	FailuresOnly bool    `json:"failures_only,omitempty"`
}

// DispatchEvent wraps a dispatch report for the feed
type DispatchEvent struct {
	Type      string                 `json:"type"`
	Report    *domain.DispatchReport `json:"report"`
	Timestamp time.Time              `json:"timestamp"`
}

type subscribeMessage struct {
	Action string     `json:"action"`
	Filter FeedFilter `json:"filter"`
}

// NewDispatchFeed creates a new DispatchFeed
func NewDispatchFeed(logger *slog.Logger) *DispatchFeed {
	return &DispatchFeed{
		clients:    make(map[*feedClient]bool),
		broadcast:  make(chan *DispatchEvent, 256),
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		logger:     logger,
	}
}

// Run starts the feed's main loop
func (f *DispatchFeed) Run() {
	for {
		select {
		case client := <-f.register:
			f.mu.Lock()
			f.clients[client] = true
			f.mu.Unlock()
			f.logger.Info("feed client connected", "client_id", client.id)

		case client := <-f.unregister:
			f.mu.Lock()
			if _, ok := f.clients[client]; ok {
				delete(f.clients, client)
				close(client.send)
			}
			f.mu.Unlock()
			f.logger.Info("feed client disconnected", "client_id", client.id)

		case event := <-f.broadcast:
			message, err := json.Marshal(event)
			if err != nil {
				f.logger.Error("failed to marshal dispatch event", "error", err)
				continue
			}

			f.mu.RLock()
			for client := range f.clients {
				if client.shouldReceive(event.Report) {
					select {
					case client.send <- message:
					default:
						// Client buffer full, skip
					}
				}
			}
			f.mu.RUnlock()
		}
	}
}

// BroadcastReport publishes a finished dispatch report to the feed
func (f *DispatchFeed) BroadcastReport(report *domain.DispatchReport) {
	event := &DispatchEvent{
		Type:      "dispatch",
		Report:    report,
		Timestamp: time.Now().UTC(),
	}

	select {
	case f.broadcast <- event:
	default:
		f.logger.Warn("feed channel full, dropping event")
	}
}

// ClientCount returns the number of connected clients
func (f *DispatchFeed) ClientCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

func (c *feedClient) shouldReceive(report *domain.DispatchReport) bool {
	if c.filter == nil {
		return true
	}

	if c.filter.FailuresOnly && report.Success {
		return false
	}

	if len(c.filter.OrderIDs) > 0 {
		for _, id := range c.filter.OrderIDs {
			if id == report.Order.ID {
				return true
			}
		}
		return false
	}

	return true
}

// WebSocketHandler handles WebSocket connections to the dispatch feed
type WebSocketHandler struct {
	feed *DispatchFeed
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(feed *DispatchFeed) *WebSocketHandler {
	return &WebSocketHandler{feed: feed}
}

// HandleWebSocket handles WebSocket upgrade and connection
// @Summary WebSocket dispatch feed
// @Description Connect to WebSocket for real-time dispatch reports
// @Tags websocket
// @Success 101 {string} string "Switching Protocols"
// @Router /ws [get]
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.feed.logger.Error("failed to upgrade websocket", "error", err)
		return
	}

	client := &feedClient{
		feed: h.feed,
		conn: conn,
		send: make(chan []byte, 256),
		id:   uuid.New().String(),
	}

	h.feed.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump pumps subscription messages from the connection to the feed
func (c *feedClient) readPump() {
	defer func() {
		c.feed.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.feed.logger.Error("websocket error", "error", err)
			}
			break
		}

		var subMsg subscribeMessage
		if err := json.Unmarshal(message, &subMsg); err != nil {
			continue
		}

		switch subMsg.Action {
		case "subscribe":
			c.filter = &subMsg.Filter
			c.feed.logger.Info("feed client subscribed",
				"client_id", c.id,
				"order_ids", c.filter.OrderIDs,
				"failures_only", c.filter.FailuresOnly,
			)
		case "unsubscribe":
			c.filter = nil
		}
	}
}

// writePump pumps events from the feed to the websocket connection
func (c *feedClient) writePump() {
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
				// Feed closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued events to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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
