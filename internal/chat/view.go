package chat

import (
	"sync"

	"main/internal/chat/wire"
)

// MessageView is the locally held message set for one chat, refreshed from
// the history API and folded with read-receipt notifications. It is a
// derived view: the history endpoint stays the source of truth.
type MessageView struct {
	mu       sync.Mutex
	chatID   wire.ID
	messages []wire.ChatMessage
	index    map[wire.ID]int
}

// NewMessageView creates an empty view for the given chat.
func NewMessageView(chatID wire.ID) *MessageView {
	return &MessageView{
		chatID: chatID,
		index:  make(map[wire.ID]int),
	}
}

// ChatID returns the chat this view mirrors.
func (v *MessageView) ChatID() wire.ID { return v.chatID }

// Replace swaps in a freshly fetched message history.
func (v *MessageView) Replace(msgs []wire.ChatMessage) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = make([]wire.ChatMessage, len(msgs))
	copy(v.messages, msgs)
	v.index = make(map[wire.ID]int, len(msgs))
	for i, msg := range v.messages {
		v.index[msg.ID] = i
	}
}

// MergeReadReceipt folds a read-receipt notification into the matching
// message's read-state. Readers only ever accumulate, with set semantics: a
// repeated (message, reader) pair changes nothing. Events for messages not
// held locally are silently dropped; the message may simply not be loaded
// into view yet.
func (v *MessageView) MergeReadReceipt(n *wire.Notification) bool {
	msgID, reader, ok := n.ReadReceipt()
	if !ok {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	i, held := v.index[msgID]
	if !held {
		return false
	}
	for _, existing := range v.messages[i].ReadBy {
		if existing.ID == reader.ID {
			return true
		}
	}
	v.messages[i].ReadBy = append(v.messages[i].ReadBy, reader)
	return true
}

// Messages returns a copy of the current view in history order.
func (v *MessageView) Messages() []wire.ChatMessage {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]wire.ChatMessage, len(v.messages))
	copy(out, v.messages)
	return out
}

// Len returns the number of messages held.
func (v *MessageView) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.messages)
}
