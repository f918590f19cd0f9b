package chat

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// ErrConnectionClosed is returned when writing to a closed connection.
var ErrConnectionClosed = errors.New("connection closed")

// controlWriteWait bounds how long a close frame may take to write.
const controlWriteWait = time.Second

// Transport is the part of a websocket connection a chat session needs.
// *websocket.Conn from gofiber/contrib/websocket satisfies it.
type Transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Connection is one admitted channel: a transport bound to a listing and a user.
// Writes are serialized; Close is idempotent and may race with Send.
type Connection struct {
	ID        string
	ListingID int64
	UserID    int64

	transport    Transport
	writeTimeout time.Duration

	mu        sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewConnection wraps an admitted transport.
func NewConnection(listingID, userID int64, t Transport, writeTimeout time.Duration) *Connection {
	return &Connection{
		ID:           uuid.NewString(),
		ListingID:    listingID,
		UserID:       userID,
		transport:    t,
		writeTimeout: writeTimeout,
	}
}

// Send writes one text frame, waiting at most the write timeout.
func (c *Connection) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return ErrConnectionClosed
	}
	if c.writeTimeout > 0 {
		if err := c.transport.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	return c.transport.WriteMessage(websocket.TextMessage, payload)
}

// CloseWithStatus sends a close frame with the given code and reason, then
// closes the transport.
func (c *Connection) CloseWithStatus(code int, reason string) {
	if c.closed.Load() {
		return
	}
	_ = c.transport.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(controlWriteWait))
	c.Close()
}

// Close closes the transport once. It does not wait for an in-flight Send.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		_ = c.transport.Close()
	})
}

// Closed reports whether Close has been called.
func (c *Connection) Closed() bool {
	return c.closed.Load()
}
