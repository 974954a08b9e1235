package ws

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"zbchat/internal/domain"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10
)

// Client represents a single websocket connection. It may or may not be
// authenticated; the presence gate decides what it is allowed to do.
type Client struct {
	ID        string
	SessionID uuid.UUID
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
}

// NewClient creates a new Client with a fresh connection id.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:        uuid.New().String(),
		SessionID: uuid.New(),
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, 256),
	}
}

// ReadPump pumps messages from the websocket connection into the hub.
// Messages from one connection are handled in arrival order; a slow
// command blocks only this connection's pump.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.HandleClose(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(domain.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("unexpected close", "conn", c.ID, "error", err)
			}
			break
		}
		c.hub.HandleInbound(c, message)
	}
}

// WritePump pumps messages from the send queue to the websocket connection.
func (c *Client) WritePump() {
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
				// Hub closed the channel
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

// Send adds a message to the client's send queue, dropping it when the
// buffer is full.
func (c *Client) Send(msg []byte) {
	select {
	case c.send <- msg:
	default:
		// Buffer full
	}
}
