package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shroudlabs/shroud/internal/audit"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsSendBuffer   = 64
)

// eventsClient represents a connected client receiving live audit events.
type eventsClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// EventHub fans classified-request events out to connected WebSocket
// clients. Slow clients are skipped rather than allowed to stall the
// broadcast.
type EventHub struct {
	mu      sync.RWMutex
	clients map[*eventsClient]struct{}
}

// NewEventHub creates an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[*eventsClient]struct{}),
	}
}

func (h *EventHub) register(c *eventsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *EventHub) unregister(c *eventsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// Broadcast sends an audit record to all connected clients.
func (h *EventHub) Broadcast(rec audit.Record) {
	msg, err := json.Marshal(rec)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Client too slow, skip
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// handleEvents upgrades the connection and streams audit events until the
// client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("events websocket upgrade failed", "error", err)
		return
	}

	client := &eventsClient{
		conn: conn,
		send: make(chan []byte, wsSendBuffer),
		done: make(chan struct{}),
	}
	s.events.register(client)

	go client.writePump()
	client.readPump()

	s.events.unregister(client)
	close(client.done)
	conn.Close()
}

// writePump forwards broadcast messages to the connection.
func (c *eventsClient) writePump() {
	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// readPump drains incoming frames so close and ping control messages are
// processed. The stream is one-way; client payloads are discarded.
func (c *eventsClient) readPump() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
