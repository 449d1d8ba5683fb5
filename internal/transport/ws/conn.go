package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/worldgate/internal/model"
)

// Conn is a session transport over a websocket. Frames are queued on a
// bounded buffer and written by a single writer goroutine.
type Conn struct {
	ws           *websocket.Conn
	send         chan []byte
	done         chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration
	logger       *slog.Logger
}

func newConn(ws *websocket.Conn, sendBuffer int, writeTimeout time.Duration, logger *slog.Logger) *Conn {
	return &Conn{
		ws:           ws,
		send:         make(chan []byte, sendBuffer),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

// WriteFrame queues a frame without blocking
func (c *Conn) WriteFrame(frame []byte) error {
	select {
	case <-c.done:
		return model.ErrClientClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	default:
		c.logger.Warn("frame dropped - client buffer full")
		return model.ErrSendBufferFull
	}
}

// Close stops the writer after it flushes queued frames. Idempotent.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

// writePump writes queued frames until the connection is closed
func (c *Conn) writePump() {
	defer c.ws.Close()
	for {
		select {
		case frame := <-c.send:
			if err := c.write(websocket.TextMessage, frame); err != nil {
				c.logger.Debug("write failed", slog.Any("error", err))
				_ = c.Close()
				return
			}
		case <-c.done:
			c.flush()
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Conn) flush() {
	for {
		select {
		case frame := <-c.send:
			if err := c.write(websocket.TextMessage, frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Conn) write(messageType int, data []byte) error {
	if c.writeTimeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.ws.WriteMessage(messageType, data)
}
