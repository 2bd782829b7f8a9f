package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/randalmurphal/plank/internal/events"
	"github.com/randalmurphal/plank/internal/store"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024
)

// WSMessage is a client-to-server WebSocket message.
type WSMessage struct {
	Type      string `json:"type"` // ping, select
	ProjectID string `json:"project_id,omitempty"`
}

// streamed lists the store events forwarded to WebSocket clients.
var streamed = map[events.EventType]bool{
	events.EventSnapshot: true,
	events.EventNotice:   true,
}

// WSHandler streams store snapshots and notices to WebSocket clients.
type WSHandler struct {
	upgrader    websocket.Upgrader
	store       store.Consumer
	connections map[*websocket.Conn]*wsConnection
	mu          sync.RWMutex
	logger      *slog.Logger
}

// wsConnection tracks a single WebSocket connection.
type wsConnection struct {
	conn      *websocket.Conn
	eventChan <-chan events.Event
	cancel    func()
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(st store.Consumer, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
		store:       st,
		connections: make(map[*websocket.Conn]*wsConnection),
		logger:      logger,
	}
}

// ServeHTTP handles WebSocket upgrade requests. A new connection receives
// the current snapshot immediately, then every snapshot and notice the
// store publishes.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	ch, cancel := h.store.Subscribe()
	wsConn := &wsConnection{
		conn:      conn,
		eventChan: ch,
		cancel:    cancel,
		send:      make(chan []byte, 256),
		done:      make(chan struct{}),
	}

	h.mu.Lock()
	h.connections[conn] = wsConn
	h.mu.Unlock()

	h.sendEvent(wsConn, events.NewEvent(events.EventSnapshot, events.GlobalTopic, h.store.Snapshot()))

	go h.readPump(wsConn)
	go h.writePump(wsConn)
	go h.forwardEvents(wsConn)
}

// readPump reads messages from the WebSocket connection.
func (h *WSHandler) readPump(c *wsConnection) {
	defer h.closeConnection(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("websocket read error", "error", err)
			}
			return
		}
		h.handleMessage(c, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (h *WSHandler) writePump(c *wsConnection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			// One frame per message so clients never see concatenated JSON.
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
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

// handleMessage processes incoming WebSocket messages.
func (h *WSHandler) handleMessage(c *wsConnection, data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.sendError(c, "invalid message format")
		return
	}

	switch msg.Type {
	case "ping":
		h.sendJSON(c, map[string]any{"type": "pong"})
	case "select":
		// The resulting snapshot arrives through the subscription.
		if err := h.store.SetCurrentProject(msg.ProjectID); err != nil {
			h.sendError(c, err.Error())
		}
	default:
		h.sendError(c, "unknown message type: "+msg.Type)
	}
}

// forwardEvents forwards store events to the WebSocket.
func (h *WSHandler) forwardEvents(c *wsConnection) {
	for {
		select {
		case <-c.done:
			return
		case event, ok := <-c.eventChan:
			if !ok {
				h.closeConnection(c)
				return
			}
			if streamed[event.Type] {
				h.sendEvent(c, event)
			}
		}
	}
}

func (h *WSHandler) sendEvent(c *wsConnection, event events.Event) {
	h.sendJSON(c, map[string]any{
		"type":  "event",
		"event": string(event.Type),
		"topic": event.Topic,
		"data":  event.Data,
		"time":  event.Time,
	})
}

// closeConnection cleans up a WebSocket connection.
func (h *WSHandler) closeConnection(c *wsConnection) {
	c.closeOnce.Do(func() {
		h.mu.Lock()
		delete(h.connections, c.conn)
		h.mu.Unlock()

		c.cancel()
		close(c.done)
		_ = c.conn.Close()
	})
}

// sendJSON sends a JSON message to a connection.
func (h *WSHandler) sendJSON(c *wsConnection, data any) {
	msg, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("failed to marshal JSON", "error", err)
		return
	}

	select {
	case c.send <- msg:
	default:
		// Buffer full, skip message
		h.logger.Warn("websocket send buffer full, dropping message")
	}
}

// sendError sends an error message to a connection.
func (h *WSHandler) sendError(c *wsConnection, message string) {
	h.sendJSON(c, map[string]any{
		"type":  "error",
		"error": message,
	})
}

// ConnectionCount returns the number of active connections.
func (h *WSHandler) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Close closes all connections.
func (h *WSHandler) Close() {
	h.mu.Lock()
	conns := make([]*wsConnection, 0, len(h.connections))
	for _, c := range h.connections {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		h.closeConnection(c)
	}
}
