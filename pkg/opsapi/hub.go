package opsapi

import (
	"log"
	"sync"
	"time"

	"golang.org/x/net/websocket"
)

// wsMessage is the WebSocket push envelope.
type wsMessage struct {
	Type      string      `json:"type"` // "snapshot", "ping"
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// hub manages every connected WebSocket client and broadcasts snapshots
// to all of them.
type hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan *wsMessage
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
	running    bool
	stopCh     chan struct{}
}

func newHub() *hub {
	return &hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan *wsMessage, 100),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		stopCh:     make(chan struct{}),
	}
}

func (h *hub) start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

func (h *hub) stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return
	}
	h.running = false
	close(h.stopCh)

	for client := range h.clients {
		client.Close()
	}
}

func (h *hub) run() {
	for {
		select {
		case <-h.stopCh:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				go func(c *websocket.Conn, msg *wsMessage) {
					if err := websocket.JSON.Send(c, msg); err != nil {
						log.Printf("[opsapi] send error: %v", err)
						h.unregister <- c
					}
				}(client, message)
			}
			h.mu.RUnlock()
		}
	}
}

func (h *hub) broadcastSnapshot(snap Snapshot) {
	msg := &wsMessage{
		Type:      "snapshot",
		Timestamp: time.Now().Format(time.RFC3339),
		Data:      snap,
	}
	select {
	case h.broadcast <- msg:
	default:
		// broadcast channel full — drop rather than block the caller.
	}
}

func (h *hub) handleWebSocket(ws *websocket.Conn) {
	h.register <- ws

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-h.stopCh:
				return
			case <-ticker.C:
				if err := websocket.JSON.Send(ws, &wsMessage{Type: "ping", Timestamp: time.Now().Format(time.RFC3339)}); err != nil {
					h.unregister <- ws
					return
				}
			}
		}
	}()

	for {
		var msg map[string]interface{}
		if err := websocket.JSON.Receive(ws, &msg); err != nil {
			h.unregister <- ws
			break
		}
	}
}

func (h *hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
