package relay

import "errors"

// ErrSendBufferFull is returned by Conn.Send when the outbound queue is full.
var ErrSendBufferFull = errors.New("relay: send buffer full")

// Conn is one live duplex channel as the relay sees it.
// Send must not block; implementations drop the frame and return an error instead.
type Conn interface {
	ID() string
	Send(frame []byte) error
	Close() error
}

// peer is a connected Conn plus what the relay knows about it.
type peer struct {
	conn Conn
	// subject is the authenticated user the channel was opened with, or "".
	subject string
}
