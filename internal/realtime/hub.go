package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/samber/lo"
	"github.com/suPer8Hu/chatcore/internal/conversation"
)

// Hub is the membership router. It tracks which live clients are subscribed
// to which conversation, and which clients belong to each identity.
type Hub struct {
	mu         sync.RWMutex
	rooms      map[conversation.Key]map[*Client]struct{}
	joined     map[*Client]map[conversation.Key]struct{}
	identities map[string]map[*Client]struct{}
	log        *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		rooms:      make(map[conversation.Key]map[*Client]struct{}),
		joined:     make(map[*Client]map[conversation.Key]struct{}),
		identities: make(map[string]map[*Client]struct{}),
		log:        log,
	}
}

// Register adds c to its identity channel.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.joined[c]; ok {
		return
	}
	h.joined[c] = make(map[conversation.Key]struct{})
	set := h.identities[c.identity]
	if set == nil {
		set = make(map[*Client]struct{})
		h.identities[c.identity] = set
	}
	set[c] = struct{}{}
}

// Unregister drops every subscription of c and returns the keys released.
func (h *Hub) Unregister(c *Client) []conversation.Key {
	h.mu.Lock()
	defer h.mu.Unlock()

	keys, ok := h.joined[c]
	if !ok {
		return nil
	}
	released := make([]conversation.Key, 0, len(keys))
	for key := range keys {
		h.removeLocked(c, key)
		released = append(released, key)
	}
	delete(h.joined, c)

	if set := h.identities[c.identity]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.identities, c.identity)
		}
	}
	return released
}

// Subscribe joins c to key. It reports false when c was already subscribed
// or is not registered.
func (h *Hub) Subscribe(c *Client, key conversation.Key) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	keys, ok := h.joined[c]
	if !ok {
		return false
	}
	if _, dup := keys[key]; dup {
		return false
	}
	keys[key] = struct{}{}
	room := h.rooms[key]
	if room == nil {
		room = make(map[*Client]struct{})
		h.rooms[key] = room
	}
	room[c] = struct{}{}
	return true
}

// Unsubscribe is a no-op when c is not subscribed to key.
func (h *Hub) Unsubscribe(c *Client, key conversation.Key) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	keys, ok := h.joined[c]
	if !ok {
		return false
	}
	if _, in := keys[key]; !in {
		return false
	}
	delete(keys, key)
	h.removeLocked(c, key)
	return true
}

func (h *Hub) removeLocked(c *Client, key conversation.Key) {
	room := h.rooms[key]
	if room == nil {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, key)
	}
}

func (h *Hub) Subscribed(c *Client, key conversation.Key) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.joined[c][key]
	return ok
}

func (h *Hub) Rooms(c *Client) []conversation.Key {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return lo.Keys(h.joined[c])
}

// Members returns the number of clients subscribed to key.
func (h *Hub) Members(key conversation.Key) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[key])
}

// Connections returns the number of live clients of identity.
func (h *Hub) Connections(identity string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.identities[identity])
}

// Broadcast delivers out to every subscriber of key whose identity is not
// except. An empty except reaches everyone, the sender included.
func (h *Hub) Broadcast(key conversation.Key, out Outbound, except string) int {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[key]))
	for c := range h.rooms[key] {
		if except != "" && c.identity == except {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	return h.deliver(targets, out)
}

// SendToIdentity delivers out to every live client of identity.
func (h *Hub) SendToIdentity(identity string, out Outbound) int {
	h.mu.RLock()
	targets := lo.Keys(h.identities[identity])
	h.mu.RUnlock()
	return h.deliver(targets, out)
}

// BroadcastOthers delivers out to every live client not owned by identity.
func (h *Hub) BroadcastOthers(identity string, out Outbound) int {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.joined))
	for id, set := range h.identities {
		if id == identity {
			continue
		}
		for c := range set {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	return h.deliver(targets, out)
}

// Send delivers out to c only.
func (h *Hub) Send(c *Client, out Outbound) bool {
	return h.deliver([]*Client{c}, out) == 1
}

// deliver marshals once and enqueues to each target. Gone or saturated
// clients are skipped.
func (h *Hub) deliver(targets []*Client, out Outbound) int {
	if len(targets) == 0 {
		return 0
	}
	payload, err := json.Marshal(out)
	if err != nil {
		h.log.Error("encode outbound event", "event", out.Event, "err", err)
		return 0
	}
	sent := 0
	for _, c := range targets {
		if c.enqueue(payload) {
			sent++
			continue
		}
		if !c.closed() {
			h.log.Warn("client send buffer full, event dropped", "client", c.id, "identity", c.identity, "event", out.Event)
		}
	}
	return sent
}
