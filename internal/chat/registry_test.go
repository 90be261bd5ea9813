package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/chat/wire"
)

func TestRegistryFanoutOrder(t *testing.T) {
	reg := NewRegistry()

	var got []string
	a := NewSubscriber(func(wire.ChatMessage) { got = append(got, "a") })
	b := NewSubscriber(func(wire.ChatMessage) { got = append(got, "b") })
	c := NewSubscriber(func(wire.ChatMessage) { got = append(got, "c") })

	reg.Subscribe(a)
	reg.Subscribe(b)
	reg.Subscribe(c)
	require.Equal(t, 3, reg.Len())

	reg.Fanout(wire.ChatMessage{Content: "x"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestRegistrySubscribeDedup(t *testing.T) {
	reg := NewRegistry()
	s := NewSubscriber(func(wire.ChatMessage) {})

	reg.Subscribe(s)
	reg.Subscribe(s)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryUnsubscribeIdentity(t *testing.T) {
	reg := NewRegistry()

	var aCount, bCount int
	// distinct values wrapping equivalent callbacks
	a := NewSubscriber(func(wire.ChatMessage) { aCount++ })
	b := NewSubscriber(func(wire.ChatMessage) { bCount++ })
	reg.Subscribe(a)
	reg.Subscribe(b)

	reg.Unsubscribe(a)
	reg.Fanout(wire.ChatMessage{})
	assert.Equal(t, 0, aCount)
	assert.Equal(t, 1, bCount)

	// unsubscribing something never registered is a no-op
	reg.Unsubscribe(NewSubscriber(func(wire.ChatMessage) {}))
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryFanoutSnapshot(t *testing.T) {
	reg := NewRegistry()

	var got []string
	late := NewSubscriber(func(wire.ChatMessage) { got = append(got, "late") })

	var self *Subscriber
	self = NewSubscriber(func(wire.ChatMessage) {
		got = append(got, "self")
		// mutations mid-pass affect the next pass only
		reg.Unsubscribe(self)
		reg.Subscribe(late)
	})
	other := NewSubscriber(func(wire.ChatMessage) { got = append(got, "other") })

	reg.Subscribe(self)
	reg.Subscribe(other)

	reg.Fanout(wire.ChatMessage{})
	assert.Equal(t, []string{"self", "other"}, got)

	got = nil
	reg.Fanout(wire.ChatMessage{})
	assert.Equal(t, []string{"other", "late"}, got)
}

func TestRegistryClear(t *testing.T) {
	reg := NewRegistry()
	fired := false
	reg.Subscribe(NewSubscriber(func(wire.ChatMessage) { fired = true }))

	reg.Clear()
	assert.Zero(t, reg.Len())

	reg.Fanout(wire.ChatMessage{})
	assert.False(t, fired)
}
