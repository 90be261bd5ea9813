package chat

import (
	"sync"

	"main/internal/chat/wire"
)

// NotificationStore is the ordered collection of notifications awaiting
// display or merge. Removal is by identity, not by index: display timers may
// fire while the collection is mutating underneath them.
type NotificationStore struct {
	mu    sync.Mutex
	items []*wire.Notification
}

// NewNotificationStore creates an empty store.
func NewNotificationStore() *NotificationStore {
	return &NotificationStore{}
}

// Append adds one notification at the end.
func (s *NotificationStore) Append(n *wire.Notification) {
	if n == nil {
		return
	}
	s.mu.Lock()
	s.items = append(s.items, n)
	s.mu.Unlock()
}

// Remove deletes the given notification if still present; no-op otherwise.
func (s *NotificationStore) Remove(n *wire.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.items {
		if item == n {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

// Snapshot returns the current notifications in arrival order.
func (s *NotificationStore) Snapshot() []*wire.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]*wire.Notification, len(s.items))
	copy(snapshot, s.items)
	return snapshot
}

// Clear drops everything.
func (s *NotificationStore) Clear() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()
}

// Len returns the number of stored notifications.
func (s *NotificationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
