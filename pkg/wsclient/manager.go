package wsclient

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/pkg/exception"
)

var (
	ErrNilDialer = errors.New("wsclient: nil dialer")
	ErrNilTokens = errors.New("wsclient: nil token source")
)

// Option defines the manager runtime configuration.
type Option struct {
	Dialer Dialer
	Tokens TokenSource
	// OnConnect runs right after transport open, before the connection is
	// reported as established, with the token the dial was authorized by.
	// Returning an error discards the connection.
	OnConnect func(token string, w Writer) error
	// OnFrame receives every inbound data frame. Frames are delivered one at
	// a time from a single goroutine; a frame is fully handled before the
	// next one is read.
	OnFrame func(payload []byte)
	// OnStatus observes connectivity transitions, for display purposes.
	OnStatus func(state State)
	// Reconnect controls recovery from unsolicited closes.
	Reconnect ReconnectPolicy
}

// Manager owns one logical gateway connection: dial, handshake, receive,
// send, close, and scheduled reconnects. At most one live connection exists
// at any time.
type Manager struct {
	opt   Option
	state atomic.Uint32

	mu      sync.Mutex
	conn    Conn
	dialing bool
	closed  bool
	gen     uint64
	pending *timerHandle
}

// NewManager validates the option set and builds a manager in the Idle state.
func NewManager(opt Option) (*Manager, error) {
	if opt.Dialer == nil {
		return nil, ErrNilDialer
	}
	if opt.Tokens == nil {
		return nil, ErrNilTokens
	}
	return &Manager{opt: opt}, nil
}

// Connect opens the transport and sends the handshake. It fails with
// ErrAuthMissing when the token source yields nothing and with
// ErrAlreadyConnected when a live connection (or in-flight dial) exists.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return exception.ErrClientClosed
	}
	if m.conn != nil || m.dialing {
		m.mu.Unlock()
		return exception.ErrAlreadyConnected
	}
	token, ok := m.opt.Tokens.Token()
	if !ok {
		m.mu.Unlock()
		return exception.ErrAuthMissing
	}
	m.dialing = true
	m.mu.Unlock()
	m.setState(StateConnecting)

	conn, err := m.opt.Dialer.Dial(ctx)
	if err != nil {
		m.abortDial()
		return errors.Wrap(err, "dial gateway")
	}

	// The handshake is fire-and-forget: the server never acks it, so the
	// connection counts as established as soon as the frame is written.
	if m.opt.OnConnect != nil {
		if err := m.opt.OnConnect(token, conn); err != nil {
			_ = conn.Close()
			m.abortDial()
			return errors.Wrap(err, "connect handshake")
		}
	}

	m.mu.Lock()
	m.dialing = false
	if m.closed {
		m.mu.Unlock()
		_ = conn.Close()
		return exception.ErrClientClosed
	}
	m.conn = conn
	m.gen++
	gen := m.gen
	m.mu.Unlock()
	m.setState(StateConnected)

	go m.readLoop(conn, gen)
	return nil
}

// Send writes one outbound frame immediately. It never queues: when the
// manager is not connected the caller gets ErrNotConnected and decides
// whether to retry.
func (m *Manager) Send(payload []byte) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return exception.ErrNotConnected
	}
	if err := conn.WriteMessage(payload); err != nil {
		return errors.Wrap(err, "write frame")
	}
	return nil
}

// State reports the current connectivity state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Close releases the transport and forbids any further connect, manual or
// scheduled. Used on logout.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	if m.pending != nil {
		m.pending.stop()
		m.pending = nil
	}
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	m.setState(StateDisconnected)
	logs.Info("chat gateway connection closed")
}

func (m *Manager) readLoop(conn Conn, gen uint64) {
	for {
		payload, err := conn.ReadMessage()
		if err != nil {
			m.connectionLost(gen, err)
			return
		}
		if m.opt.OnFrame != nil {
			m.opt.OnFrame(payload)
		}
	}
}

// connectionLost handles an unsolicited transport close or error. The
// generation guard drops stale events from connections already replaced.
func (m *Manager) connectionLost(gen uint64, cause error) {
	m.mu.Lock()
	if m.closed || gen != m.gen || m.conn == nil {
		m.mu.Unlock()
		return
	}
	_ = m.conn.Close()
	m.conn = nil
	m.scheduleReconnectLocked()
	m.mu.Unlock()

	m.setState(StateDisconnected)
	logs.Errorf("chat gateway connection lost, err: %+v", cause)
}

func (m *Manager) abortDial() {
	m.mu.Lock()
	m.dialing = false
	m.mu.Unlock()
	m.setState(StateDisconnected)
}

func (m *Manager) setState(next State) {
	prev := State(m.state.Swap(uint32(next)))
	if prev != next && m.opt.OnStatus != nil {
		m.opt.OnStatus(next)
	}
}
