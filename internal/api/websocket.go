package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/FocuswithJustin/JuniperAnswers/core/rank"
	"github.com/FocuswithJustin/JuniperAnswers/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	// Questions a single connection may submit per second.
	messagesPerSecond = 2
)

// Message is sent to WebSocket clients while a ranking runs.
type Message struct {
	Type       string        `json:"type"` // "stage", "complete", "error"
	RunID      string        `json:"run_id,omitempty"`
	Filter     string        `json:"filter,omitempty"`
	Stage      int           `json:"stage,omitempty"`
	Total      int           `json:"total,omitempty"`
	DurationMS float64       `json:"duration_ms,omitempty"`
	Message    string        `json:"message,omitempty"`
	Timestamp  string        `json:"timestamp"`
	Result     *RankResponse `json:"result,omitempty"`
}

func stageMessage(ev rank.StageEvent) Message {
	msg := Message{
		Type:       "stage",
		RunID:      ev.RunID,
		Filter:     ev.Filter,
		Stage:      ev.Stage,
		Total:      ev.Total,
		DurationMS: float64(ev.Duration.Microseconds()) / 1000,
	}
	if ev.Err != nil {
		msg.Message = ev.Err.Error()
	}
	return msg
}

// Client is one WebSocket connection.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
}

// enqueue queues msg for the client, dropping it when the queue is full.
func (c *Client) enqueue(msg Message) {
	data, ok := encodeMessage(msg)
	if !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		logging.Warn("websocket client queue full, dropping message", "type", msg.Type)
	}
}

// Hub tracks connected clients and broadcasts stage events from rankings
// served over HTTP.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
}

// NewHub creates a hub. Start it with Run.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run handles registration and broadcasting until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			logging.WebSocketEvent("client_connected", n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			logging.WebSocketEvent("client_disconnected", n)

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Stop ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends msg to every connected client.
func (h *Hub) Broadcast(msg Message) {
	data, ok := encodeMessage(msg)
	if !ok {
		return
	}
	select {
	case h.broadcast <- data:
	default:
		logging.Warn("broadcast channel full, dropping message")
	}
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func encodeMessage(msg Message) ([]byte, bool) {
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		logging.Error("failed to marshal websocket message", "error", err)
		return nil, false
	}
	return data, true
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if !isOriginAllowed(origin, s.cfg.AllowedOrigins) {
				logging.SecurityEvent("websocket_origin_rejected", "api", "origin", origin)
				return false
			}
			return true
		},
	}
}

// handleWebSocket upgrades the connection. Each text message the client
// sends is a RankRequest; the server answers with one "stage" message per
// filter followed by "complete" or "error". Stage events of HTTP rankings
// are broadcast to every client as well.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	up := s.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:     s.hub,
		conn:    conn,
		send:    make(chan []byte, 256),
		limiter: rate.NewLimiter(rate.Limit(messagesPerSecond), messagesPerSecond),
	}
	if !s.hub.add(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go s.readPump(client)
}

// readPump serves ranking requests until the connection closes.
func (s *Server) readPump(c *Client) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		c.hub.remove(c)
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Error("websocket unexpected close", "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		if !c.limiter.Allow() {
			c.enqueue(Message{Type: "error", Message: "rate limit exceeded"})
			continue
		}

		var req RankRequest
		if err := json.Unmarshal(data, &req); err != nil {
			c.enqueue(Message{Type: "error", Message: "invalid request: " + err.Error()})
			continue
		}

		resp, err := s.rankStreaming(ctx, req, func(ev rank.StageEvent) {
			c.enqueue(stageMessage(ev))
		})
		if err != nil {
			c.enqueue(Message{Type: "error", Message: err.Error()})
			continue
		}
		c.enqueue(Message{Type: "complete", RunID: resp.RunID, Result: resp})
	}
}

// writePump writes queued messages and keeps the connection alive.
func (c *Client) writePump() {
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
