package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 4096
	sendBuffer = 64
)

// clientMessage is everything a subscriber may send upstream.
type clientMessage struct {
	Event string `json:"event"`
	Room  string `json:"room,omitempty"`
	ID    uint   `json:"id,omitempty"`
}

// Client is one websocket connection attached to the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

// readPump pumps inbound messages until the connection dies, then
// removes the client from all rooms.
func (c *Client) readPump() {
	defer func() {
		c.hub.drop(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Warn("ws_read_error", "error", err)
			}
			return
		}
		c.handleMessage(message)
	}
}

// writePump drains the send channel and keeps the connection alive
// with periodic pings. Messages go out in the order they were queued.
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

func (c *Client) handleMessage(raw []byte) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.hub.Logger.Warn("ws_bad_message", "error", err)
		return
	}

	switch msg.Event {
	case "joinRoom":
		if msg.Room != "" {
			c.hub.Subscribe(msg.Room, c)
		}
	case "leaveRoom":
		if msg.Room != "" {
			c.hub.Unsubscribe(msg.Room, c)
		}
	case "orderPlaced":
		c.relayOrder(msg.ID, RoomKitchen, EventNewOrder)
	case "orderReady":
		c.relayOrder(msg.ID, RoomWaiters, EventOrderReady)
	default:
		c.hub.Logger.Warn("ws_unknown_event", "event", msg.Event)
	}
}

// relayOrder re-loads the order so subscribers receive it populated,
// then broadcasts to the target room.
func (c *Client) relayOrder(id uint, room, event string) {
	if c.hub.Orders == nil || id == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	order, err := c.hub.Orders(ctx, id)
	if err != nil {
		c.hub.Logger.Warn("ws_relay_error", "event", event, "order_id", id, "error", err)
		return
	}
	c.hub.Publish(room, event, order)
}
