// Package chat implements the client-side message distribution layer: one
// authenticated gateway connection whose inbound frames are decoded,
// classified, and demultiplexed into chat-message fanout and a notification
// store, with automatic recovery from connection loss.
package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/chat/wire"
	"main/pkg/wsclient"
)

// Option configures a session client.
type Option struct {
	// GatewayURL is the chat gateway WebSocket endpoint.
	GatewayURL string
	// Tokens yields the session auth token; consulted at every connect and
	// reconnect attempt.
	Tokens wsclient.TokenSource
	// ReconnectDelay overrides the reconnect delay; zero keeps the default.
	ReconnectDelay time.Duration
	// OnStatus observes connectivity transitions, for display purposes.
	OnStatus func(state wsclient.State)
}

// Client is the session-scoped chat client. Subscriber registrations and
// stored notifications live here, above any individual connection, so an
// automatic reconnect preserves them; Close (logout) drops everything.
type Client struct {
	manager       *wsclient.Manager
	registry      *Registry
	notifications *NotificationStore
}

// New builds a client; no connection is attempted yet.
func New(opt Option) (*Client, error) {
	c := &Client{
		registry:      NewRegistry(),
		notifications: NewNotificationStore(),
	}

	manager, err := wsclient.NewManager(wsclient.Option{
		Dialer:    &wsclient.GatewayDialer{URL: opt.GatewayURL},
		Tokens:    opt.Tokens,
		OnConnect: sendInit,
		OnFrame:   c.handleFrame,
		OnStatus:  opt.OnStatus,
		Reconnect: wsclient.ReconnectPolicy{Delay: opt.ReconnectDelay},
	})
	if err != nil {
		return nil, errors.Wrap(err, "build connection manager")
	}
	c.manager = manager
	return c, nil
}

// Connect opens the gateway connection and authenticates the session.
func (c *Client) Connect(ctx context.Context) error {
	return c.manager.Connect(ctx)
}

// Close tears the session down: connection, subscribers, notifications.
// No automatic reconnect happens after Close; a new login needs a new Client.
func (c *Client) Close() {
	c.manager.Close()
	c.registry.Clear()
	c.notifications.Clear()
}

// Send delivers one chat message. channelType is wire.TypeLC or
// wire.TypeGroup; receiverID is the peer user id or the group chat id. The
// frame carries a fresh idempotency token. Fails with ErrNotConnected when
// the connection is down; nothing is queued or retried here.
func (c *Client) Send(content, channelType string, receiverID wire.ID) error {
	frame := wire.OutboundFrame{
		Type:        channelType,
		Content:     content,
		ReceiverID:  receiverID,
		MessageUUID: uuid.NewString(),
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		return errors.Wrap(err, "encode outbound frame")
	}
	return c.manager.Send(payload)
}

// Subscribe registers a chat-message consumer.
func (c *Client) Subscribe(s *Subscriber) {
	c.registry.Subscribe(s)
}

// Unsubscribe removes a previously registered consumer.
func (c *Client) Unsubscribe(s *Subscriber) {
	c.registry.Unsubscribe(s)
}

// Notifications exposes the notification store for display and merging.
func (c *Client) Notifications() *NotificationStore {
	return c.notifications
}

// State reports the current connectivity state.
func (c *Client) State() wsclient.State {
	return c.manager.State()
}

// handleFrame is the inbound path: decode, classify, demultiplex. One frame
// is fully handled before the next is read. A bad frame is dropped and
// logged; it never affects the connection.
func (c *Client) handleFrame(raw []byte) {
	in, err := wire.DecodeInbound(raw)
	if err != nil {
		logs.Errorf("drop inbound frame, err: %+v", err)
		return
	}
	switch in.Kind {
	case wire.KindNotification:
		n := in.Notification
		c.notifications.Append(&n)
	default:
		c.registry.Fanout(in.Message)
	}
}

func sendInit(token string, w wsclient.Writer) error {
	payload, err := json.Marshal(wire.NewInit(token))
	if err != nil {
		return errors.Wrap(err, "encode init frame")
	}
	return w.WriteMessage(payload)
}
