package websocket

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	defaultSendBuffer = 256
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("send buffer full")
)

// Conn is the part of *websocket.Conn the server relies on.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type deadlineConn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
}

// Connection is one physical duplex stream. Its outbound side is a single
// writer goroutine fed by the send queue, so direct responses and fanout
// deliveries never interleave on the wire.
type Connection struct {
	id     string
	conn   Conn
	send   chan []byte
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	// in-flight request handlers
	handlers sync.WaitGroup
	// write pump
	pumps sync.WaitGroup
}

// NewConnection wraps conn. Nothing is started until Start.
func NewConnection(conn Conn, sendBuffer int, logger *slog.Logger) *Connection {
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New().String()

	return &Connection{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		logger: logger.With("connID", id),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *Connection) ID() string {
	return c.id
}

// Context is cancelled when the connection closes.
func (c *Connection) Context() context.Context {
	return c.ctx
}

func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

// Start launches the write pump. ping <= 0 disables keepalive pings.
func (c *Connection) Start(ping time.Duration) {
	c.pumps.Add(1)
	go c.writePump(ping)
}

// Send queues a frame for the write pump. A connection whose queue is full is
// considered dead and closed; the caller gets ErrSendBufferFull.
func (c *Connection) Send(data []byte) error {
	if c.IsClosed() {
		return ErrConnectionClosed
	}

	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
		c.logger.Warn("Send buffer full, closing connection")
		c.Close()
		return ErrSendBufferFull
	}
}

// Close marks the connection closed and releases the socket. Safe to call
// more than once.
func (c *Connection) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.cancel()
	if err := c.conn.Close(); err != nil {
		c.logger.Debug("Error closing connection", "error", err)
	}
	slog.Debug("Connection marked as closed", "connID", c.id)
}

// Go runs fn as a request handler tracked by the connection.
func (c *Connection) Go(fn func(ctx context.Context)) {
	c.handlers.Add(1)
	go func() {
		defer c.handlers.Done()
		fn(c.ctx)
	}()
}

// Wait blocks until the write pump and every handler finished, or timeout.
func (c *Connection) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		c.handlers.Wait()
		c.pumps.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		c.logger.Warn("Timeout waiting for goroutines to finish", "timeout", timeout)
		return false
	}
}

// readPump delivers every inbound text frame to handle, in arrival order,
// until the peer goes away or the connection is closed.
// wait bounds the silence between pongs; <= 0 selects pongWait.
func (c *Connection) readPump(maxSize int64, wait time.Duration, handle func(data []byte)) error {
	if wait <= 0 {
		wait = pongWait
	}
	if dc, ok := c.conn.(deadlineConn); ok {
		if maxSize <= 0 {
			maxSize = maxMessageSize
		}
		dc.SetReadLimit(maxSize)
		_ = dc.SetReadDeadline(time.Now().Add(wait))
		dc.SetPongHandler(func(string) error {
			if c.IsClosed() {
				return websocket.ErrCloseSent
			}
			return dc.SetReadDeadline(time.Now().Add(wait))
		})
	}

	for {
		if c.IsClosed() {
			return ErrConnectionClosed
		}

		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			} else {
				c.logger.Debug("WebSocket connection closed", "error", err)
			}
			return err
		}
		if messageType != websocket.TextMessage {
			continue
		}

		c.logger.Debug("Received message", "message", string(data))
		handle(data)
	}
}

// readWait keeps the pong deadline ahead of the ping period, in the same
// ratio as pingPeriod to pongWait.
func readWait(ping time.Duration) time.Duration {
	if ping <= 0 {
		return pongWait
	}
	return (ping * 10) / 9
}

func (c *Connection) writePump(ping time.Duration) {
	var tick <-chan time.Time
	if ping > 0 {
		ticker := time.NewTicker(ping)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer c.pumps.Done()

	dc, hasDeadlines := c.conn.(deadlineConn)

	for {
		select {
		case message := <-c.send:
			if hasDeadlines {
				_ = dc.SetWriteDeadline(time.Now().Add(writeWait))
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("Error writing message", "error", err)
				c.Close()
				return
			}

		case <-tick:
			if hasDeadlines {
				_ = dc.SetWriteDeadline(time.Now().Add(writeWait))
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("Error sending ping", "error", err)
				c.Close()
				return
			}

		case <-c.ctx.Done():
			c.logger.Debug("WritePump context cancelled")
			return
		}
	}
}
