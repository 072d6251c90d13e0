package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/anjiri1684/chat_app/models"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
	handleTimeout  = 5 * time.Second
)

// Client is one socket connection of a user.
type Client struct {
	UserID uuid.UUID
	User   models.PublicUser

	send chan []byte
	// rooms is owned by the hub goroutine.
	rooms map[string]struct{}

	mu     sync.Mutex
	closed bool
}

func NewClient(user models.User) *Client {
	return &Client{
		UserID: user.ID,
		User:   user.Public(),
		send:   make(chan []byte, sendBuffer),
		rooms:  make(map[string]struct{}),
	}
}

// enqueue reports false when the client is closed or its queue is full.
func (c *Client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Serve runs an authenticated connection until either side closes it.
func (h *Hub) Serve(conn *websocketcontrib.Conn, user models.User) {
	c := NewClient(user)
	if !h.Register(c) {
		_ = conn.Close()
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(c, conn)
	}()

	h.readPump(c, conn)
	h.Unregister(c)
	c.close()
	<-done
}

func (h *Hub) readPump(c *Client, conn *websocketcontrib.Conn) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		h.heartbeat(c)
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocketcontrib.IsUnexpectedCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseNormalClosure) {
				h.logger.Warn("WebSocket read error", "user_id", c.UserID, "error", err)
			}
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		h.handleFrame(ctx, c, raw)
		cancel()
	}
}

func (h *Hub) writePump(c *Client, conn *websocketcontrib.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocketcontrib.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocketcontrib.TextMessage, frame); err != nil {
				h.logger.Warn("WebSocket write error", "user_id", c.UserID, "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocketcontrib.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
