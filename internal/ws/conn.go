package ws

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"

	"github.com/sraza0098/wisp-backend/internal/relay"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

// Conn is the relay's handle on one websocket.
type Conn struct {
	id   string
	ws   *websocket.Conn
	send chan []byte
	log  *zap.Logger
}

var _ relay.Conn = (*Conn)(nil)

func newConn(id string, ws *websocket.Conn, buffer int, log *zap.Logger) *Conn {
	return &Conn{id: id, ws: ws, send: make(chan []byte, buffer), log: log}
}

func (c *Conn) ID() string { return c.id }

// Send queues frame for the writer. A full queue drops the frame.
func (c *Conn) Send(frame []byte) error {
	select {
	case c.send <- frame:
		return nil
	default:
		return relay.ErrSendBufferFull
	}
}

// Close tears the socket down; the read loop then disconnects from the relay.
func (c *Conn) Close() error {
	return c.ws.Close()
}

// readLoop feeds inbound frames to dispatch until the socket fails.
func (c *Conn) readLoop(dispatch func(connID string, data []byte)) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("read error", zap.String("conn", c.id), zap.Error(err))
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		dispatch(c.id, data)
	}
}

// writeLoop drains the send queue and pings until the queue is closed.
func (c *Conn) writeLoop(done chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(done)
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug("write error", zap.String("conn", c.id), zap.Error(err))
				_ = c.ws.Close()
				drain(c.send)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.ws.Close()
				drain(c.send)
				return
			}
		}
	}
}

// drain discards frames until the queue is closed so senders never see a stuck writer.
func drain(ch <-chan []byte) {
	for range ch {
	}
}
