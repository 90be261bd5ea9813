package wsclient

// State is the lifecycle state of the managed connection.
type State uint8

const (
	// StateIdle means no connection has been attempted yet.
	StateIdle State = iota
	// StateConnecting means a dial is in flight.
	StateConnecting
	// StateConnected means the transport is open and the init frame was sent.
	StateConnected
	// StateDisconnected means the transport is down.
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// TokenSource yields the session auth token. It is consulted on every
// connect and reconnect attempt; returning false means the session is not
// authenticated and no connection may be created.
type TokenSource interface {
	Token() (string, bool)
}

// TokenFunc adapts a function to a TokenSource.
type TokenFunc func() (string, bool)

func (f TokenFunc) Token() (string, bool) { return f() }

// StaticToken returns a TokenSource that always yields the given token.
// An empty token reads as not authenticated.
func StaticToken(token string) TokenSource {
	return TokenFunc(func() (string, bool) {
		return token, token != ""
	})
}
