package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// Rooms mirror the staff roles that consume order events.
const (
	RoomKitchen = "chef"
	RoomWaiters = "waiter"
)

// Server-pushed event names.
const (
	EventNewOrder   = "newOrder"
	EventOrderReady = "orderReadyNotification"
)

// Envelope is the wire format for every server-to-client message.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// OrderLoader resolves an order id to its populated form so a client
// relaying "orderPlaced"/"orderReady" gets the full order rebroadcast.
type OrderLoader func(ctx context.Context, id uint) (interface{}, error)

// Hub tracks room membership and fans events out to subscribers.
// Delivery is best-effort: a slow client drops messages rather than
// blocking the publisher.
type Hub struct {
	Orders OrderLoader
	Logger *slog.Logger

	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewHub(orders OrderLoader, logger *slog.Logger) *Hub {
	return &Hub{
		Orders: orders,
		Logger: logger,
		rooms:  make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Subscribe(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
}

func (h *Hub) Unsubscribe(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// drop removes the client from every room it joined.
func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Publish sends an event to every member of a room. Fire-and-forget:
// the publisher never waits for subscriber acknowledgment.
func (h *Hub) Publish(room, event string, payload interface{}) {
	data, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		h.Logger.Error("ws_publish_error", "room", room, "event", event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		select {
		case c.send <- data:
		default:
			h.Logger.Warn("ws_buffer_full", "room", room, "event", event)
		}
	}
}

// Members reports current room occupancy.
func (h *Hub) Members(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
