package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/suPer8Hu/chatcore/internal/chat"
)

// PresenceStore persists presence transitions.
type PresenceStore interface {
	SetOnline(ctx context.Context, identity string, at time.Time) error
	SetOffline(ctx context.Context, identity string, at time.Time) error
}

// Tracker counts live connections per identity. Online is declared when the
// first connection opens and offline when the last one closes.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*presenceEntry

	store    PresenceStore
	hub      *Hub
	exporter chat.Exporter
	log      *slog.Logger
	now      func() time.Time
}

type presenceEntry struct {
	mu    sync.Mutex // serializes transitions of one identity
	count int
	refs  int // holders between acquire and release, guarded by Tracker.mu
}

func NewTracker(store PresenceStore, hub *Hub, exporter chat.Exporter, log *slog.Logger) *Tracker {
	if exporter == nil {
		exporter = chat.NopExporter{}
	}
	return &Tracker{
		entries:  make(map[string]*presenceEntry),
		store:    store,
		hub:      hub,
		exporter: exporter,
		log:      log,
		now:      time.Now,
	}
}

// acquire returns the locked entry of identity, creating it when create is
// set. A nil entry means identity has no live connection.
func (t *Tracker) acquire(identity string, create bool) *presenceEntry {
	t.mu.Lock()
	e := t.entries[identity]
	if e == nil {
		if !create {
			t.mu.Unlock()
			return nil
		}
		e = &presenceEntry{}
		t.entries[identity] = e
	}
	e.refs++
	t.mu.Unlock()

	e.mu.Lock()
	return e
}

// release unlocks e and drops it from the map once nobody holds it and no
// connection is left.
func (t *Tracker) release(identity string, e *presenceEntry) {
	e.mu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	e.refs--
	if e.refs == 0 && e.count == 0 {
		delete(t.entries, identity)
	}
}

// Connect records one more live connection of identity and reports whether
// that made it online.
func (t *Tracker) Connect(ctx context.Context, identity string) bool {
	e := t.acquire(identity, true)
	e.count++
	if e.count != 1 {
		t.release(identity, e)
		return false
	}

	at := t.now().UTC()
	evt, ok := t.transition(ctx, identity, true, at)
	t.release(identity, e)
	if ok {
		t.export(ctx, evt)
	}
	return true
}

// Disconnect records one closed connection and reports whether identity went
// offline. Unbalanced calls are ignored.
func (t *Tracker) Disconnect(ctx context.Context, identity string) bool {
	e := t.acquire(identity, false)
	if e == nil {
		return false
	}
	if e.count == 0 {
		t.release(identity, e)
		return false
	}
	e.count--
	if e.count != 0 {
		t.release(identity, e)
		return false
	}

	at := t.now().UTC()
	evt, ok := t.transition(ctx, identity, false, at)
	t.release(identity, e)
	if ok {
		t.export(ctx, evt)
	}
	return true
}

// Online reports whether identity has at least one live connection.
func (t *Tracker) Online(identity string) bool {
	return t.Count(identity) > 0
}

func (t *Tracker) Count(identity string) int {
	e := t.acquire(identity, false)
	if e == nil {
		return 0
	}
	n := e.count
	t.release(identity, e)
	return n
}

// transition persists and broadcasts one presence change. It runs under the
// identity's lock so watchers see transitions in order.
func (t *Tracker) transition(ctx context.Context, identity string, online bool, at time.Time) (chat.ExportEvent, bool) {
	var (
		err      error
		lastSeen *time.Time
	)
	if online {
		err = t.store.SetOnline(ctx, identity, at)
	} else {
		lastSeen = &at
		err = t.store.SetOffline(ctx, identity, at)
	}
	if err != nil {
		t.log.Error("persist presence", "identity", identity, "online", online, "err", err)
		return chat.ExportEvent{}, false
	}

	t.hub.BroadcastOthers(identity, Outbound{
		Event: EventUserStatusChange,
		Data:  StatusChangePayload{Username: identity, IsOnline: online, LastSeen: lastSeen},
	})
	t.log.Info("presence changed", "identity", identity, "online", online)

	return chat.ExportEvent{
		Kind:     chat.EventPresenceChanged,
		At:       at,
		Identity: identity,
		IsOnline: &online,
		LastSeen: lastSeen,
	}, true
}

func (t *Tracker) export(ctx context.Context, evt chat.ExportEvent) {
	if err := t.exporter.Export(ctx, evt); err != nil {
		t.log.Warn("event export failed", "kind", evt.Kind, "err", err)
	}
}
