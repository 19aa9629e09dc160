// Package ws is the WebSocket transport: one Client per connection, grouped
// into room channels for broadcast.
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/blitzarena/internal/model"
)

// Longest Shutdown waits for read loops to hand their disconnects to the handler
const shutdownWait = 15 * time.Second

// Hub tracks live clients and their room memberships
type Hub struct {
	clients map[model.ConnID]*Client
	rooms   map[model.RoomID]map[model.ConnID]bool
	mu      sync.RWMutex
	logger  *slog.Logger

	// pumps counts read loops that have not yet reported their disconnect
	pumps   sync.WaitGroup
	closing bool
}

// NewHub creates an empty Hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[model.ConnID]*Client),
		rooms:   make(map[model.RoomID]map[model.ConnID]bool),
		logger:  logger.With(slog.String("component", "ws")),
	}
}

// register adds a client whose read loop is about to start. Returns false once the hub is shutting down.
func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		return false
	}
	h.clients[c.id] = c
	h.pumps.Add(1)
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("ws client registered",
		slog.String("conn_id", string(c.id)),
		slog.Int("total_clients", count))
	return true
}

// unregister removes the client from the hub and every room. Returns false if it was already gone.
func (h *Hub) unregister(c *Client) bool {
	h.mu.Lock()
	if h.clients[c.id] != c {
		h.mu.Unlock()
		return false
	}
	delete(h.clients, c.id)
	for roomID, members := range h.rooms {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	count := len(h.clients)
	h.mu.Unlock()

	c.close()
	h.logger.Info("ws client unregistered",
		slog.String("conn_id", string(c.id)),
		slog.Duration("connection_duration", time.Since(c.connectedAt)),
		slog.Int("total_clients", count))
	return true
}

// Send delivers a message to one connection. Unknown connections are ignored.
func (h *Hub) Send(connID model.ConnID, msg model.Outbound) {
	data, ok := h.encode(msg)
	if !ok {
		return
	}

	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if ok {
		c.enqueue(data)
	}
}

// JoinRoom adds a connection to a room channel
func (h *Hub) JoinRoom(connID model.ConnID, roomID model.RoomID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[connID]; !ok {
		return
	}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[model.ConnID]bool)
	}
	h.rooms[roomID][connID] = true
}

// LeaveRoom removes a connection from a room channel
func (h *Hub) LeaveRoom(connID model.ConnID, roomID model.RoomID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
}

// BroadcastRoom delivers a message to every member of a room channel
func (h *Hub) BroadcastRoom(roomID model.RoomID, msg model.Outbound) {
	data, ok := h.encode(msg)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for connID := range h.rooms[roomID] {
		if c, ok := h.clients[connID]; ok {
			c.enqueue(data)
		}
	}
}

// BroadcastAll delivers a message to every connected client
func (h *Hub) BroadcastAll(msg model.Outbound) {
	data, ok := h.encode(msg)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.enqueue(data)
	}
}

// Close shuts a connection from the server side.
// The client's read loop then reports the disconnect as usual.
func (h *Hub) Close(connID model.ConnID) {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if ok {
		c.close()
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomMembers returns the number of connections in a room channel
func (h *Hub) RoomMembers(roomID model.RoomID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Shutdown closes every connection and refuses new ones. It returns once each
// read loop has handed its disconnect to the handler, or after shutdownWait.
// Safe to call more than once.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closing = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}

	drained := make(chan struct{})
	go func() {
		h.pumps.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		h.logger.Info("ws hub stopped", slog.Int("disconnected_clients", len(clients)))
	case <-time.After(shutdownWait):
		h.logger.Warn("ws hub stopped before every disconnect was handled",
			slog.Int("disconnected_clients", len(clients)))
	}
}

func (h *Hub) encode(msg model.Outbound) ([]byte, bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode message",
			slog.String("type", string(msg.Type)),
			slog.String("error", err.Error()))
		return nil, false
	}
	return data, true
}
