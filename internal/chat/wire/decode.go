package wire

import (
	"bytes"
	"encoding/json"

	"main/pkg/exception"
)

// MaxDecodeDepth bounds the iterative unwrap of string-encoded frames. The
// gateway double-encodes some payloads; the bound is a safety valve against
// pathological nesting, not a protocol requirement.
// TODO: remove the loop once gateway framing emits a single encoding layer.
const MaxDecodeDepth = 10

// Kind tags a decoded inbound value.
type Kind uint8

const (
	KindChatMessage Kind = iota
	KindNotification
)

// Inbound is a fully decoded inbound frame.
type Inbound struct {
	Kind         Kind
	Message      ChatMessage
	Notification Notification
}

// Unwrap parses the payload repeatedly while the result remains a JSON
// string, up to MaxDecodeDepth parses. A parse failure yields
// ErrMalformedFrame; exhausting the bound yields ErrDecodeDepthExceeded.
func Unwrap(raw []byte) ([]byte, error) {
	cur := bytes.TrimSpace(raw)
	for i := 0; i < MaxDecodeDepth; i++ {
		if len(cur) == 0 {
			return nil, exception.ErrMalformedFrame
		}
		if cur[0] != '"' {
			if !json.Valid(cur) {
				return nil, exception.ErrMalformedFrame
			}
			return cur, nil
		}
		var inner string
		if err := json.Unmarshal(cur, &inner); err != nil {
			return nil, exception.ErrMalformedFrame
		}
		cur = bytes.TrimSpace([]byte(inner))
	}
	return nil, exception.ErrDecodeDepthExceeded
}

// Classify applies the canonical discriminator: a top-level "type" key marks
// a notification, its absence marks a chat message. Nothing beyond the
// discriminator is validated; consumers tolerate missing optional fields.
func Classify(payload []byte) Kind {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(payload, &probe); err == nil {
		if _, ok := probe["type"]; ok {
			return KindNotification
		}
	}
	return KindChatMessage
}

// DecodeInbound unwraps and classifies one raw inbound frame.
func DecodeInbound(raw []byte) (Inbound, error) {
	payload, err := Unwrap(raw)
	if err != nil {
		return Inbound{}, err
	}
	switch Classify(payload) {
	case KindNotification:
		var n Notification
		if err := json.Unmarshal(payload, &n); err != nil {
			return Inbound{}, exception.ErrMalformedFrame
		}
		return Inbound{Kind: KindNotification, Notification: n}, nil
	default:
		var msg ChatMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return Inbound{}, exception.ErrMalformedFrame
		}
		return Inbound{Kind: KindChatMessage, Message: msg}, nil
	}
}
