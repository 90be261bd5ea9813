package chat

import (
	"sync"

	"main/internal/chat/wire"
)

// Subscriber wraps a chat-message callback with a registration identity.
// The same *Subscriber value used to subscribe must be used to unsubscribe.
type Subscriber struct {
	fn func(msg wire.ChatMessage)
}

// NewSubscriber creates a subscriber around the given callback.
func NewSubscriber(fn func(msg wire.ChatMessage)) *Subscriber {
	return &Subscriber{fn: fn}
}

// Registry holds the current set of chat-message consumers. It is scoped to
// the session, not to any individual connection: automatic reconnects keep
// all registrations, an explicit Clear (logout) drops them.
type Registry struct {
	mu   sync.RWMutex
	subs []*Subscriber
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Subscribe appends the subscriber to the active set. Re-subscribing the
// same value is a no-op.
func (r *Registry) Subscribe(s *Subscriber) {
	if r == nil || s == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.subs {
		if existing == s {
			return
		}
	}
	r.subs = append(r.subs, s)
}

// Unsubscribe removes the first registration identical to s; no-op if absent.
func (r *Registry) Unsubscribe(s *Subscriber) {
	if r == nil || s == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.subs {
		if existing == s {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			return
		}
	}
}

// Fanout delivers msg to every subscriber registered at the moment the pass
// begins, synchronously and in registration order. Subscribers added or
// removed by a callback take effect from the next pass only: delivery runs
// over an immutable snapshot.
func (r *Registry) Fanout(msg wire.ChatMessage) {
	r.mu.RLock()
	snapshot := make([]*Subscriber, len(r.subs))
	copy(snapshot, r.subs)
	r.mu.RUnlock()

	for _, s := range snapshot {
		if s != nil && s.fn != nil {
			s.fn(msg)
		}
	}
}

// Clear drops every registration.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.subs = nil
	r.mu.Unlock()
}

// Len returns the number of registered subscribers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
