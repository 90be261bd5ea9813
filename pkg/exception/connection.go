package exception

import "github.com/yanun0323/errors"

// Connection errors
var (
	ErrAuthMissing      = errors.New("chat: no auth token for session")
	ErrAlreadyConnected = errors.New("chat: live connection already exists")
	ErrNotConnected     = errors.New("chat: not connected")
	ErrClientClosed     = errors.New("chat: client closed")
)
