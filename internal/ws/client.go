package ws

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Conn is the transport handle the registry tracks. Satisfied by
// *websocket.Conn wrapped in Client; faked in tests.
type Conn interface {
	// Send pushes one serialized message; an error means the connection is
	// no longer usable.
	Send(payload []byte) error
	Close() error
}

// Client wraps a websocket connection with its liveness flag. Writes and
// liveness mutation are serialized; gorilla allows one concurrent writer.
type Client struct {
	UserID uuid.UUID

	conn  *websocket.Conn
	mu    sync.Mutex
	alive bool
}

func NewClient(userID uuid.UUID, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		conn:   conn,
		alive:  true,
	}
}

func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Alive reports whether the client answered its last heartbeat probe.
func (c *Client) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alive
}

func (c *Client) setAlive(v bool) {
	c.mu.Lock()
	c.alive = v
	c.mu.Unlock()
}

// Ping sends a heartbeat probe. Write errors mean the peer is gone.
func (c *Client) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}
