package wsclient

import (
	"context"
	"time"

	"github.com/yanun0323/logs"
)

// DefaultReconnectDelay is how long a dropped connection stays down before
// the single automatic reconnect attempt.
const DefaultReconnectDelay = 5000 * time.Millisecond

// ReconnectPolicy schedules one delayed reconnect attempt per unsolicited
// close. No backoff, no retry cap: a failed attempt leaves the manager
// disconnected until the next close event of a live connection re-arms it,
// or the caller connects manually.
type ReconnectPolicy struct {
	// Delay before the attempt; DefaultReconnectDelay when zero.
	Delay time.Duration
}

func (p ReconnectPolicy) delay() time.Duration {
	if p.Delay <= 0 {
		return DefaultReconnectDelay
	}
	return p.Delay
}

// timerHandle wraps the pending attempt so tests can swap granularity.
type timerHandle struct {
	t *time.Timer
}

func (h *timerHandle) stop() {
	if h != nil && h.t != nil {
		h.t.Stop()
	}
}

// scheduleReconnectLocked arms at most one pending attempt. Callers hold m.mu.
func (m *Manager) scheduleReconnectLocked() {
	if m.closed || m.pending != nil {
		return
	}
	m.pending = &timerHandle{t: time.AfterFunc(m.opt.Reconnect.delay(), m.reconnect)}
}

// reconnect runs when the delay elapses. Authentication is re-checked here
// rather than at scheduling time: a logout inside the window cancels the
// attempt without any explicit token plumbing.
func (m *Manager) reconnect() {
	m.mu.Lock()
	m.pending = nil
	if m.closed || m.conn != nil || m.dialing {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	if _, ok := m.opt.Tokens.Token(); !ok {
		logs.Info("skip reconnect: session no longer authenticated")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultDialTimeout)
	defer cancel()
	if err := m.Connect(ctx); err != nil {
		logs.Errorf("reconnect attempt failed, err: %+v", err)
	}
}
