package chat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/chat/wire"
	"main/pkg/exception"
	"main/pkg/wsclient"
)

type gatewaySession struct {
	conn   *websocket.Conn
	frames chan []byte
}

func (s *gatewaySession) recv(t *testing.T) []byte {
	t.Helper()
	select {
	case payload := <-s.frames:
		return payload
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a client frame")
		return nil
	}
}

func (s *gatewaySession) push(t *testing.T, payload string) {
	t.Helper()
	require.NoError(t, s.conn.WriteMessage(websocket.TextMessage, []byte(payload)))
}

// testGateway is an in-process stand-in for the chat gateway: it accepts
// websocket upgrades and exposes each session for inspection and pushes.
type testGateway struct {
	srv      *httptest.Server
	sessions chan *gatewaySession
}

func newTestGateway(t *testing.T) *testGateway {
	t.Helper()
	g := &testGateway{sessions: make(chan *gatewaySession, 4)}
	up := websocket.Upgrader{}
	g.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		sess := &gatewaySession{conn: conn, frames: make(chan []byte, 16)}
		g.sessions <- sess
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			sess.frames <- payload
		}
	}))
	t.Cleanup(g.srv.Close)
	return g
}

func (g *testGateway) url() string {
	return "ws" + strings.TrimPrefix(g.srv.URL, "http")
}

func (g *testGateway) accept(t *testing.T) *gatewaySession {
	t.Helper()
	select {
	case sess := <-g.sessions:
		return sess
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a gateway connection")
		return nil
	}
}

func dialSession(t *testing.T, g *testGateway, opt Option) (*Client, *gatewaySession) {
	t.Helper()
	opt.GatewayURL = g.url()
	if opt.Tokens == nil {
		opt.Tokens = wsclient.StaticToken("tok")
	}
	client, err := New(opt)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	require.NoError(t, client.Connect(t.Context()))
	return client, g.accept(t)
}

func TestClientSendsInitFirst(t *testing.T) {
	_, sess := dialSession(t, newTestGateway(t), Option{})
	assert.JSONEq(t, `{"type":"init","content":"tok"}`, string(sess.recv(t)))
}

func TestClientSendFrameShape(t *testing.T) {
	client, sess := dialSession(t, newTestGateway(t), Option{})
	sess.recv(t) // init

	require.NoError(t, client.Send("hello", wire.TypeGroup, "42"))

	var frame map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(sess.recv(t), &frame))
	assert.Equal(t, `"group"`, string(frame["type"]))
	assert.Equal(t, `"hello"`, string(frame["content"]))
	assert.Equal(t, `42`, string(frame["receiver_id"]))

	var token string
	require.NoError(t, json.Unmarshal(frame["message_uuid"], &token))
	_, err := uuid.Parse(token)
	assert.NoError(t, err, "message_uuid must be a fresh uuid")
}

func TestClientSendWhileDown(t *testing.T) {
	client, err := New(Option{GatewayURL: "ws://localhost:1", Tokens: wsclient.StaticToken("tok")})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	assert.ErrorIs(t, client.Send("hi", wire.TypeLC, "1"), exception.ErrNotConnected)
}

func TestClientFanout(t *testing.T) {
	client, sess := dialSession(t, newTestGateway(t), Option{})
	sess.recv(t)

	got := make(chan wire.ChatMessage, 4)
	client.Subscribe(NewSubscriber(func(msg wire.ChatMessage) { got <- msg }))

	sess.push(t, `{"id":1,"chat_id":2,"sender_id":3,"content":"plain","sender":{"id":3},"read_by_users":[],"updated_at":"2024-05-02T10:11:12.123456"}`)

	msg := <-got
	assert.Equal(t, wire.ID("1"), msg.ID)
	assert.Equal(t, wire.ID("2"), msg.ChatID)
	assert.Equal(t, "plain", msg.Content)

	// a multiply string-encoded frame decodes to the same thing
	inner := `{"id":4,"chat_id":2,"sender_id":3,"content":"wrapped"}`
	once, err := json.Marshal(inner)
	require.NoError(t, err)
	twice, err := json.Marshal(string(once))
	require.NoError(t, err)
	sess.push(t, string(twice))

	msg = <-got
	assert.Equal(t, wire.ID("4"), msg.ID)
	assert.Equal(t, "wrapped", msg.Content)
}

func TestClientNotificationsStored(t *testing.T) {
	client, sess := dialSession(t, newTestGateway(t), Option{})
	sess.recv(t)

	sess.push(t, `{"type":"MSG_READ","content":"read","meta_data":{"msg_id":"m1","who_read":"{\"id\": 7, \"email\": \"a@b.c\"}"}}`)

	require.Eventually(t, func() bool {
		return client.Notifications().Len() == 1
	}, 2*time.Second, 10*time.Millisecond)

	n := client.Notifications().Snapshot()[0]
	msgID, reader, ok := n.ReadReceipt()
	require.True(t, ok)
	assert.Equal(t, wire.ID("m1"), msgID)
	assert.Equal(t, wire.ID("7"), reader.ID)
}

func TestClientDropsBadFrames(t *testing.T) {
	client, sess := dialSession(t, newTestGateway(t), Option{})
	sess.recv(t)

	got := make(chan wire.ChatMessage, 4)
	client.Subscribe(NewSubscriber(func(msg wire.ChatMessage) { got <- msg }))

	// garbage must not take the connection down
	sess.push(t, `{"content": truncated`)
	sess.push(t, `[1,2,3]`)
	sess.push(t, `{"id":9,"content":"still alive"}`)

	msg := <-got
	assert.Equal(t, "still alive", msg.Content)
	assert.Equal(t, wsclient.StateConnected, client.State())
}

func TestClientReconnectKeepsSubscribers(t *testing.T) {
	g := newTestGateway(t)
	client, sess := dialSession(t, g, Option{ReconnectDelay: 20 * time.Millisecond})
	sess.recv(t)

	got := make(chan wire.ChatMessage, 4)
	client.Subscribe(NewSubscriber(func(msg wire.ChatMessage) { got <- msg }))

	require.NoError(t, sess.conn.Close())

	// a fresh session authenticates again and keeps feeding the same subscriber
	next := g.accept(t)
	assert.JSONEq(t, `{"type":"init","content":"tok"}`, string(next.recv(t)))
	next.push(t, `{"id":1,"content":"after reconnect"}`)

	msg := <-got
	assert.Equal(t, "after reconnect", msg.Content)
}

func TestClientCloseEndsSession(t *testing.T) {
	g := newTestGateway(t)
	var mu sync.Mutex
	token := "tok"
	client, sess := dialSession(t, g, Option{
		ReconnectDelay: 10 * time.Millisecond,
		Tokens: wsclient.TokenFunc(func() (string, bool) {
			mu.Lock()
			defer mu.Unlock()
			return token, token != ""
		}),
	})
	sess.recv(t)

	client.Subscribe(NewSubscriber(func(wire.ChatMessage) {}))
	mu.Lock()
	token = ""
	mu.Unlock()
	client.Close()

	assert.Equal(t, wsclient.StateDisconnected, client.State())
	assert.ErrorIs(t, client.Send("hi", wire.TypeLC, "1"), exception.ErrNotConnected)
	assert.Zero(t, client.Notifications().Len())

	select {
	case <-g.sessions:
		t.Fatal("no reconnect may happen after Close")
	case <-time.After(50 * time.Millisecond):
	}
}
