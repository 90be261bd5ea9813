package wsclient

import "context"

// Conn is a minimal interface for an open duplex connection.
// ReadMessage blocks until the next data frame arrives; control frames are
// handled by the implementation.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(payload []byte) error
	Close() error
}

// Dialer creates new connections.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// Writer exposes the send capability of a connection without the rest of its
// lifecycle. The OnConnect hook receives one so it can emit handshake
// traffic before the manager reports the connection as established.
type Writer interface {
	WriteMessage(payload []byte) error
}
