// Package api is a thin client for the chat backend's request/response
// surface: history, read marks, chat and user listings. It is a boundary
// collaborator of the realtime layer; no retries, no caching.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/chat/wire"
	"main/pkg/exception"
	"main/pkg/wsclient"
)

const defaultRequestTimeout = 15 * time.Second

// Chat describes one chat the current user participates in.
type Chat struct {
	ID      wire.ID       `json:"id"`
	ChatID  wire.ID       `json:"chat_id"`
	Name    string        `json:"name"`
	IsGroup bool          `json:"is_group"`
	OwnerID wire.ID       `json:"owner_id"`
	Users   []wire.Reader `json:"users"`
	Owner   wire.Reader   `json:"owner"`
}

// MyChats is the chat listing, split by kind.
type MyChats struct {
	GroupChats []Chat `json:"group_chats"`
	LCChats    []Chat `json:"lc_chats"`
}

// User is a directory entry.
type User struct {
	ID       wire.ID `json:"id"`
	Email    string  `json:"email"`
	FullName string  `json:"full_name"`
}

// Name returns the best display name available.
func (u User) Name() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

// Client calls the chat backend REST API with the session bearer token.
type Client struct {
	base   string
	tokens wsclient.TokenSource
	httpc  *http.Client
}

// New creates a client for the given base URL, e.g.
// "http://localhost:8000/api/v1".
func New(baseURL string, tokens wsclient.TokenSource) *Client {
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		tokens: tokens,
		httpc:  &http.Client{Timeout: defaultRequestTimeout},
	}
}

// ChatHistory fetches the message history for a chat, newest last. This is
// the source of truth the live layer merely updates.
func (c *Client) ChatHistory(ctx context.Context, chatID wire.ID) ([]wire.ChatMessage, error) {
	var out []wire.ChatMessage
	err := c.do(ctx, http.MethodGet, "/msg/history/"+url.PathEscape(chatID.String()), nil, &out)
	return out, errors.Wrap(err, "fetch chat history")
}

// MarkRead marks one message as read by the current user.
func (c *Client) MarkRead(ctx context.Context, msgID wire.ID) error {
	err := c.do(ctx, http.MethodGet, "/msg/mark_msg_read/"+url.PathEscape(msgID.String()), nil, nil)
	return errors.Wrap(err, "mark message read")
}

// MyChats lists the chats of the current session.
func (c *Client) MyChats(ctx context.Context) (MyChats, error) {
	var out MyChats
	err := c.do(ctx, http.MethodGet, "/groups/my", nil, &out)
	return out, errors.Wrap(err, "list chats")
}

// CreateChat creates a chat with the given name and participants. One
// participant makes a private chat, two or more make a group.
func (c *Client) CreateChat(ctx context.Context, name string, userIDs []wire.ID) error {
	body := map[string]any{"name": name, "user_ids": userIDs}
	err := c.do(ctx, http.MethodPost, "/groups/create", body, nil)
	return errors.Wrap(err, "create chat")
}

// Users lists all users.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var out struct {
		Data  []User `json:"data"`
		Count int    `json:"count"`
	}
	err := c.do(ctx, http.MethodGet, "/users/", nil, &out)
	return out.Data, errors.Wrap(err, "list users")
}

// Me returns the current session's user.
func (c *Client) Me(ctx context.Context) (User, error) {
	var out User
	err := c.do(ctx, http.MethodGet, "/users/me", nil, &out)
	return out, errors.Wrap(err, "fetch current user")
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token, ok := c.tokens.Token()
	if !ok {
		return exception.ErrAuthMissing
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request body")
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reqBody)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s response", path)
	}
	return nil
}
