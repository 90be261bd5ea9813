package wsclient

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yanun0323/errors"
)

const DefaultDialTimeout = 10 * time.Second

// GatewayDialer dials a chat gateway over WebSocket.
type GatewayDialer struct {
	// URL is the full gateway endpoint, e.g. "ws://host:8000/api/v1/ws/chat".
	URL string
	// Header carries extra handshake headers, may be nil.
	Header http.Header
	// HandshakeTimeout bounds the dial; DefaultDialTimeout when zero.
	HandshakeTimeout time.Duration
}

func (d *GatewayDialer) Dial(ctx context.Context) (Conn, error) {
	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}
	conn, resp, err := dialer.DialContext(ctx, d.URL, d.Header)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil, errors.Wrapf(err, "dial %s", d.URL)
	}
	return &gatewayConn{conn: conn}, nil
}

// gatewayConn wraps a gorilla connection with write serialization.
// gorilla allows only one concurrent writer.
type gatewayConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *gatewayConn) ReadMessage() ([]byte, error) {
	for {
		msgType, payload, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		return payload, nil
	}
}

func (c *gatewayConn) WriteMessage(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *gatewayConn) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return c.conn.Close()
}
