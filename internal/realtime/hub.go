package realtime

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/gatedrop/gatedrop/internal/obs"
)

// conn is the subset of *websocket.Conn the hub writes to. Tests
// substitute a recording fake.
type conn interface {
	WriteMessage(messageType int, data []byte) error
}

// Hub routes domain events to live connections. Every connection is a
// member of the global feed; a connection additionally joins the room
// of any job it is a party to or bidding on. Delivery is best-effort
// and at-most-once; offline clients re-fetch state on reconnect.
type Hub struct {
	mu     sync.RWMutex
	global map[conn]bool
	rooms  map[string]map[conn]bool
}

func NewHub() *Hub {
	return &Hub{
		global: make(map[conn]bool),
		rooms:  make(map[string]map[conn]bool),
	}
}

// Register adds a connection to the global feed.
func (h *Hub) Register(c conn) {
	h.mu.Lock()
	h.global[c] = true
	h.mu.Unlock()
	obs.WSConnections.Inc()
}

// Unregister drops a connection from the global feed and every room.
func (h *Hub) Unregister(c conn) {
	h.mu.Lock()
	if _, ok := h.global[c]; ok {
		delete(h.global, c)
		obs.WSConnections.Dec()
	}
	for roomID, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.mu.Unlock()
}

// Join adds a connection to a job's room.
func (h *Hub) Join(roomID string, c conn) {
	h.mu.Lock()
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[conn]bool)
		h.rooms[roomID] = members
	}
	members[c] = true
	h.mu.Unlock()
}

// Leave removes a connection from a job's room.
func (h *Hub) Leave(roomID string, c conn) {
	h.mu.Lock()
	if members, ok := h.rooms[roomID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.mu.Unlock()
}

// ToRoom broadcasts an event to a job's room. A room with no members is
// not an error; the event is simply dropped.
func (h *Hub) ToRoom(roomID, event string, payload any) {
	msg, err := json.Marshal(Event{Type: event, Data: payload})
	if err != nil {
		return
	}
	h.mu.RLock()
	members := h.rooms[roomID]
	targets := make([]conn, 0, len(members))
	for c := range members {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		_ = c.WriteMessage(websocket.TextMessage, msg)
	}
	obs.EventsEmitted.WithLabelValues(event).Inc()
}

// Global broadcasts an event to every connected client.
func (h *Hub) Global(event string, payload any) {
	msg, err := json.Marshal(Event{Type: event, Data: payload})
	if err != nil {
		return
	}
	h.mu.RLock()
	targets := make([]conn, 0, len(h.global))
	for c := range h.global {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		_ = c.WriteMessage(websocket.TextMessage, msg)
	}
	obs.EventsEmitted.WithLabelValues(event).Inc()
}
