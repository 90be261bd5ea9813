// Package wire defines the frame shapes exchanged with the chat gateway and
// the inbound decode path. One JSON value per frame; inbound values may be
// multiply-encoded as strings and are unwrapped iteratively.
package wire

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/yanun0323/errors"
)

// Channel types understood by the gateway.
const (
	// TypeInit authenticates the connection; must be the first frame sent.
	TypeInit = "init"
	// TypeLC targets a private chat; the receiver is the peer user id.
	TypeLC = "lc"
	// TypeGroup targets a group chat; the receiver is the group chat id.
	TypeGroup = "group"
)

// Notification kinds emitted by the gateway today.
const (
	NotifyMsgRead     = "MSG_READ"
	NotifyChatInvited = "CHAT_INVITED"
)

// ID is a chat-protocol identifier. The gateway emits identifiers both as
// JSON numbers and as strings (user ids are numeric, group chat ids are
// UUIDs); ID keeps the string form and marshals numeric values back as
// numbers so outbound frames match what the gateway expects.
type ID string

func (id ID) String() string { return string(id) }

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) numeric() bool {
	if len(id) > 1 && id[0] == '0' {
		return false
	}
	_, err := strconv.ParseInt(string(id), 10, 64)
	return err == nil
}

// InitFrame is the first client frame after transport open: it carries the
// session auth token and nothing else.
type InitFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func NewInit(token string) InitFrame {
	return InitFrame{Type: TypeInit, Content: token}
}

// OutboundFrame is a chat send. MessageUUID is a fresh client-generated
// idempotency token attached as a correlation key; this layer performs no
// dedup with it.
type OutboundFrame struct {
	Type        string `json:"type"`
	Content     string `json:"content"`
	ReceiverID  ID     `json:"receiver_id"`
	MessageUUID string `json:"message_uuid"`
}

// Reader identifies a user who read a message.
type Reader struct {
	ID       ID     `json:"id"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

// Name returns the best display name available.
func (r Reader) Name() string {
	if r.FullName != "" {
		return r.FullName
	}
	return r.Email
}

func (r *Reader) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	// read notifications double-encode the reader descriptor; unwrap the
	// string layer before decoding the object
	if len(data) > 0 && data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return err
		}
		data = []byte(inner)
	}
	type plain Reader
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Reader(p)
	return nil
}

// Timestamp accepts both RFC 3339 and the gateway's zone-less isoformat.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return errors.Errorf("unrecognized timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// ChatMessage is a live message delivered to chat subscribers. It is
// distinguished from notifications by the absence of a top-level "type" key.
type ChatMessage struct {
	ID        ID        `json:"id"`
	ChatID    ID        `json:"chat_id"`
	SenderID  ID        `json:"sender_id"`
	Content   string    `json:"content"`
	Sender    Reader    `json:"sender"`
	ReadBy    []Reader  `json:"read_by_users"`
	UpdatedAt Timestamp `json:"updated_at"`
}

// Notification is an asynchronous event: read receipts, chat invites.
type Notification struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Meta    *Meta  `json:"meta_data,omitempty"`
}

// Meta is the optional notification payload.
type Meta struct {
	MsgID   ID      `json:"msg_id,omitempty"`
	WhoRead *Reader `json:"who_read,omitempty"`
}

// ReadReceipt extracts the read-receipt event carried by a notification:
// which message was read and by whom. ok is false when the notification
// carries no such metadata.
func (n *Notification) ReadReceipt() (msgID ID, reader Reader, ok bool) {
	if n == nil || n.Meta == nil || n.Meta.WhoRead == nil || n.Meta.MsgID == "" {
		return "", Reader{}, false
	}
	return n.Meta.MsgID, *n.Meta.WhoRead, true
}
