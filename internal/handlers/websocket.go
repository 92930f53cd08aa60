package handlers

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaestus/internal/interfaces"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local single-user app
	},
}

// WebSocketHandler broadcasts service events to connected clients.
type WebSocketHandler struct {
	events      interfaces.EventService
	logger      arbor.ILogger
	mu          sync.RWMutex
	clients     map[*websocket.Conn]*sync.Mutex
	unsubscribe func()
}

// NewWebSocketHandler creates a new websocket handler.
func NewWebSocketHandler(events interfaces.EventService, logger arbor.ILogger) *WebSocketHandler {
	return &WebSocketHandler{
		events:  events,
		logger:  logger,
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Start subscribes to the event service and pumps events to clients until
// Stop is called.
func (h *WebSocketHandler) Start() {
	ch, unsubscribe := h.events.Subscribe()
	h.unsubscribe = unsubscribe

	go func() {
		for event := range ch {
			h.broadcast(event)
		}
	}()
}

// Stop detaches from the event service, which ends the pump goroutine.
func (h *WebSocketHandler) Stop() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
}

// HandleWebSocket handles GET /ws
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug().Int("clients", count).Msg("WebSocket client connected")

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		remaining := len(h.clients)
		h.mu.Unlock()
		conn.Close()
		h.logger.Debug().Int("clients", remaining).Msg("WebSocket client disconnected")
	}()

	// Drain client messages to keep the connection alive.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}
	}
}

// broadcast sends one event to every connected client. A failed write drops
// that client's message; disconnects are handled by its read loop.
func (h *WebSocketHandler) broadcast(event interfaces.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal event")
		return
	}

	h.mu.RLock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(h.clients))
	for conn, mu := range h.clients {
		conns[conn] = mu
	}
	h.mu.RUnlock()

	for conn, mu := range conns {
		mu.Lock()
		err := conn.WriteMessage(websocket.TextMessage, payload)
		mu.Unlock()
		if err != nil {
			h.logger.Debug().Err(err).Msg("WebSocket write failed")
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
