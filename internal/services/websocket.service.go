package services

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"vitalwatch/internal/models"

	"github.com/gorilla/websocket"
)

// WebSocketMessage represents a message sent over WebSocket
type WebSocketMessage struct {
	Type      string      `json:"type"` // "status", "ping", "pong", "error"
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// StatusPayload is pushed to every client on each hub tick
type StatusPayload struct {
	Status Status                                   `json:"status"`
	Latest map[models.SeriesName]models.MetricPoint `json:"latest"`
	Extra  map[models.Family]map[string]float64     `json:"extra,omitempty"`
}

// ClientConnection represents a connected WebSocket client
type ClientConnection struct {
	ID    string
	Conn  *websocket.Conn
	Send  chan WebSocketMessage
	Close chan bool
}

// WebSocketHub fans engine status out to all connected clients
type WebSocketHub struct {
	engine     *HistoryEngine
	clients    map[string]*ClientConnection
	broadcast  chan WebSocketMessage
	register   chan *ClientConnection
	unregister chan string
	mu         sync.RWMutex
	period     time.Duration
	done       chan bool
	stopped    chan struct{}
}

var wsHub *WebSocketHub

// InitWebSocketHub initializes the hub and starts broadcasting every period
func InitWebSocketHub(engine *HistoryEngine, period time.Duration) *WebSocketHub {
	if period <= 0 {
		period = time.Second
	}
	wsHub = &WebSocketHub{
		engine:     engine,
		clients:    make(map[string]*ClientConnection),
		broadcast:  make(chan WebSocketMessage, 256),
		register:   make(chan *ClientConnection),
		unregister: make(chan string),
		period:     period,
		done:       make(chan bool),
		stopped:    make(chan struct{}),
	}

	go wsHub.run()

	return wsHub
}

// run manages the hub's event loop
func (h *WebSocketHub) run() {
	ticker := time.NewTicker(h.period)
	defer ticker.Stop()
	defer close(h.stopped)

	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.Close)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("[WS] Client connected: %s (total: %d)", client.ID, total)

		case clientID := <-h.unregister:
			h.mu.Lock()
			if client, exists := h.clients[clientID]; exists {
				delete(h.clients, clientID)
				close(client.Send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("[WS] Client disconnected: %s (total: %d)", clientID, total)

		case msg := <-h.broadcast:
			h.fanOut(msg)

		case <-ticker.C:
			if h.ClientCount() == 0 {
				continue
			}
			msg, err := h.statusMessage()
			if err != nil {
				log.Printf("[WS] Error marshaling status: %v", err)
				continue
			}
			h.fanOut(msg)
		}
	}
}

// fanOut delivers msg to every client, skipping clients whose queue is full
func (h *WebSocketHub) fanOut(msg WebSocketMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Send <- msg:
		default:
		}
	}
}

// statusMessage builds the periodic status push
func (h *WebSocketHub) statusMessage() (WebSocketMessage, error) {
	payload := StatusPayload{
		Status: h.engine.Status(),
		Latest: h.engine.Latest(),
		Extra:  h.engine.LatestExtra(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return WebSocketMessage{}, err
	}
	return WebSocketMessage{
		Type:      "status",
		Timestamp: time.Now(),
		Data:      json.RawMessage(data),
	}, nil
}

// Register adds a new client to the hub
func (h *WebSocketHub) Register(client *ClientConnection) {
	select {
	case h.register <- client:
	case <-h.stopped:
		close(client.Close)
	}
}

// Unregister removes a client from the hub
func (h *WebSocketHub) Unregister(clientID string) {
	select {
	case h.unregister <- clientID:
	case <-h.stopped:
	}
}

// Broadcast sends a message to all connected clients
func (h *WebSocketHub) Broadcast(msg WebSocketMessage) {
	select {
	case h.broadcast <- msg:
	case <-h.stopped:
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetWebSocketHub returns the WebSocket hub
func GetWebSocketHub() *WebSocketHub {
	return wsHub
}

// StopWebSocketHub gracefully stops the hub
func StopWebSocketHub() {
	if wsHub != nil {
		wsHub.Stop()
	}
}

// Stop ends the event loop and signals every client to close
func (h *WebSocketHub) Stop() {
	select {
	case h.done <- true:
		<-h.stopped
	case <-h.stopped:
	}
}
