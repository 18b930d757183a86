package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	wsIdlePingInterval = 30 * time.Second
	wsWriteTimeout     = 10 * time.Second
)

// Hub fans solve progress and results out to websocket clients.
type Hub struct {
	mu                sync.Mutex
	clients           map[*Client]struct{}
	broadcastProgress chan progressPayload
	broadcastResult   chan solveResultPayload
}

type Client struct {
	hub  *Hub
	send chan []byte
}

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type progressPayload struct {
	ElapsedMs      int64          `json:"elapsed_ms"`
	Depth          int            `json:"depth"`
	TotalStates    uint64         `json:"total_states"`
	ExpandedStates uint64         `json:"expanded_states"`
	Completed      []MoveProgress `json:"completed"`
}

type solveResultPayload struct {
	Result  string   `json:"result"`
	PV      []string `json:"pv"`
	Proof   []string `json:"proof"`
	Aborted bool     `json:"aborted"`
}

func NewHub() *Hub {
	return &Hub{
		clients:           make(map[*Client]struct{}),
		broadcastProgress: make(chan progressPayload, 32),
		broadcastResult:   make(chan solveResultPayload, 8),
	}
}

func (h *Hub) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case payload := <-h.broadcastProgress:
			h.mu.Lock()
			for client := range h.clients {
				client.sendJSON(wsMessage{Type: "progress", Payload: mustMarshal(payload)})
			}
			h.mu.Unlock()
		case payload := <-h.broadcastResult:
			h.mu.Lock()
			for client := range h.clients {
				client.sendJSON(wsMessage{Type: "result", Payload: mustMarshal(payload)})
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) HasClients() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients) > 0
}

func (h *Hub) PublishProgress(p progressPayload) {
	select {
	case h.broadcastProgress <- p:
	default:
	}
}

func (h *Hub) PublishResult(p solveResultPayload) {
	select {
	case h.broadcastResult <- p:
	default:
	}
}

// writeLoop drains the send channel onto the connection, pinging when a
// long solve produces nothing worth broadcasting so proxies keep the
// connection open.
func (c *Client) writeLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(wsIdlePingInterval)
	defer ticker.Stop()
	ping := mustMarshal(wsMessage{Type: "ping"})
	lastWrite := time.Now()

	write := func(payload []byte) error {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return err
		}
		lastWrite = time.Now()
		return nil
	}

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := write(msg); err != nil {
				return
			}
		case <-ticker.C:
			if time.Since(lastWrite) < wsIdlePingInterval {
				continue
			}
			if err := write(ping); err != nil {
				return
			}
		}
	}
}

func (c *Client) sendJSON(msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func serveProgressWS(hub *Hub, controller *SolveController, w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Debug("ws: upgrade failed")
		return
	}
	client := &Client{hub: hub, send: make(chan []byte, 16)}
	hub.Register(client)

	client.sendJSON(wsMessage{Type: "status", Payload: mustMarshal(controller.Status())})

	go func() {
		defer conn.Close()
		client.writeLoop(conn)
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			hub.Unregister(client)
			return
		}
		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "request_status":
			client.sendJSON(wsMessage{Type: "status", Payload: mustMarshal(controller.Status())})
		}
	}
}

func mustMarshal(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}
