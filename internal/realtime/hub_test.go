package realtime

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/chatcore/internal/conversation"
	"github.com/suPer8Hu/chatcore/internal/observability"
)

func TestHub_SubscriptionLifecycle(t *testing.T) {
	req := require.New(t)
	h := NewHub(observability.Discard())
	a := newClient("alice", nil, 4)
	key := conversation.Direct("alice", "bob")

	req.False(h.Subscribe(a, key), "unregistered client must not join")

	h.Register(a)
	req.True(h.Subscribe(a, key))
	req.False(h.Subscribe(a, key), "one subscription per connection and conversation")
	req.Equal(1, h.Members(key))
	req.True(h.Subscribed(a, key))

	req.True(h.Unsubscribe(a, key))
	req.False(h.Unsubscribe(a, key))
	req.Zero(h.Members(key))
}

func TestHub_UnregisterReleasesEverything(t *testing.T) {
	req := require.New(t)
	h := NewHub(observability.Discard())
	a := newClient("alice", nil, 4)
	h.Register(a)

	keys := []conversation.Key{
		conversation.Direct("alice", "bob"),
		conversation.Direct("alice", "carol"),
		conversation.Group("7"),
	}
	for _, k := range keys {
		req.True(h.Subscribe(a, k))
	}
	req.ElementsMatch(keys, h.Rooms(a))

	req.ElementsMatch(keys, h.Unregister(a))
	for _, k := range keys {
		req.Zero(h.Members(k))
	}
	req.Zero(h.Connections("alice"))
	req.Empty(h.Rooms(a))
	req.Nil(h.Unregister(a))
}

func TestHub_BroadcastScopes(t *testing.T) {
	req := require.New(t)
	h := NewHub(observability.Discard())
	a1 := newClient("alice", nil, 4)
	a2 := newClient("alice", nil, 4)
	b := newClient("bob", nil, 4)
	c := newClient("carol", nil, 4)
	for _, cl := range []*Client{a1, a2, b, c} {
		h.Register(cl)
	}
	key := conversation.Direct("alice", "bob")
	h.Subscribe(a1, key)
	h.Subscribe(b, key)

	out := Outbound{Event: "ping", Data: nil}

	req.Equal(2, h.Broadcast(key, out, ""))
	req.Equal(1, h.Broadcast(key, out, "alice"))
	req.Equal(2, h.SendToIdentity("alice", out))
	req.Equal(2, h.BroadcastOthers("alice", out))

	drain(a1)
	drain(a2)
	drain(b)
	drain(c)
}

func TestHub_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	req := require.New(t)
	h := NewHub(observability.Discard())
	slow := newClient("slow", nil, 1)
	h.Register(slow)

	req.True(h.Send(slow, Outbound{Event: "one"}))
	req.False(h.Send(slow, Outbound{Event: "two"}))

	slow.close()
	drain(slow)
	req.False(h.Send(slow, Outbound{Event: "three"}))
}
