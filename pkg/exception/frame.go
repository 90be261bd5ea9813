package exception

import "errors"

// Inbound frame errors
var (
	ErrMalformedFrame      = errors.New("chat: malformed inbound frame")
	ErrDecodeDepthExceeded = errors.New("chat: frame decode depth exceeded")
)
