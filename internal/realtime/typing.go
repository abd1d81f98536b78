package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/suPer8Hu/chatcore/internal/conversation"
)

type typingKey struct {
	client *Client
	key    conversation.Key
}

type typingState struct {
	timer *time.Timer
	gen   uint64
}

// Coordinator relays typing indicators to the other subscribers of a
// conversation. Nothing is persisted. It remembers who is typing only so a
// stop can be emitted when the connection drops or, with a non zero expiry,
// after that much inactivity.
type Coordinator struct {
	hub    *Hub
	expiry time.Duration
	log    *slog.Logger

	mu     sync.Mutex
	active map[typingKey]*typingState
	gen    uint64
}

func NewCoordinator(hub *Hub, expiry time.Duration, log *slog.Logger) *Coordinator {
	return &Coordinator{
		hub:    hub,
		expiry: expiry,
		log:    log,
		active: make(map[typingKey]*typingState),
	}
}

func (t *Coordinator) Start(c *Client, key conversation.Key) {
	tk := typingKey{client: c, key: key}

	t.mu.Lock()
	st := t.active[tk]
	if st == nil {
		st = &typingState{}
		t.active[tk] = st
	}
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
	t.gen++
	st.gen = t.gen
	if t.expiry > 0 {
		gen := st.gen
		st.timer = time.AfterFunc(t.expiry, func() { t.expire(tk, gen) })
	}
	t.mu.Unlock()

	t.broadcast(c, key, EventUserTyping)
}

// Stop always relays, even when no start was seen.
func (t *Coordinator) Stop(c *Client, key conversation.Key) {
	t.forget(typingKey{client: c, key: key})
	t.broadcast(c, key, EventUserStoppedTyping)
}

// Release emits a stop for every conversation c was still typing in.
func (t *Coordinator) Release(c *Client) {
	var keys []conversation.Key

	t.mu.Lock()
	for tk, st := range t.active {
		if tk.client != c {
			continue
		}
		if st.timer != nil {
			st.timer.Stop()
		}
		delete(t.active, tk)
		keys = append(keys, tk.key)
	}
	t.mu.Unlock()

	for _, key := range keys {
		t.broadcast(c, key, EventUserStoppedTyping)
	}
}

// Typing reports whether c is currently marked as typing in key.
func (t *Coordinator) Typing(c *Client, key conversation.Key) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.active[typingKey{client: c, key: key}]
	return ok
}

func (t *Coordinator) forget(tk typingKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st := t.active[tk]; st != nil {
		if st.timer != nil {
			st.timer.Stop()
		}
		delete(t.active, tk)
	}
}

func (t *Coordinator) expire(tk typingKey, gen uint64) {
	t.mu.Lock()
	st := t.active[tk]
	if st == nil || st.gen != gen {
		// restarted or stopped in the meantime
		t.mu.Unlock()
		return
	}
	delete(t.active, tk)
	t.mu.Unlock()

	t.log.Debug("typing expired", "identity", tk.client.identity, "conversation", tk.key.String())
	t.broadcast(tk.client, tk.key, EventUserStoppedTyping)
}

func (t *Coordinator) broadcast(c *Client, key conversation.Key, event string) {
	t.hub.Broadcast(key, Outbound{
		Event: event,
		Data:  TypingPayload{User: c.identity, Conversation: key.String()},
	}, c.identity)
}
