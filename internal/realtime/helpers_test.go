package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/chatcore/internal/chat"
	"github.com/suPer8Hu/chatcore/internal/db"
	"github.com/suPer8Hu/chatcore/internal/observability"
	"github.com/suPer8Hu/chatcore/internal/session"
)

type received struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type testEnv struct {
	repo    *chat.Repo
	svc     *chat.Service
	hub     *Hub
	tracker *Tracker
	typing  *Coordinator
	gw      *Gateway
}

type envOptions struct {
	exporter     chat.Exporter
	resolver     session.Resolver
	typingExpiry time.Duration
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.Connect("sqlite", fmt.Sprintf("file:rt_%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gdb) })
	if err := db.Migrate(context.Background(), gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	log := observability.Discard()
	repo := chat.NewRepo(gdb)
	svc := chat.NewService(repo, repo, opts.exporter, 0, log)
	hub := NewHub(log)
	tracker := NewTracker(repo, hub, opts.exporter, log)
	typing := NewCoordinator(hub, opts.typingExpiry, log)
	gw := NewGateway(opts.resolver, svc, hub, tracker, typing, Options{SendBuffer: 32}, log)
	return &testEnv{repo: repo, svc: svc, hub: hub, tracker: tracker, typing: typing, gw: gw}
}

// connect returns a client without a socket; its outbound queue is read
// directly by the tests.
func (e *testEnv) connect(t *testing.T, identity string) *Client {
	t.Helper()
	c := newClient(identity, nil, 32)
	e.gw.Connect(context.Background(), c)
	return c
}

func (e *testEnv) frame(t *testing.T, c *Client, event string, data any) {
	t.Helper()
	body, err := json.Marshal(map[string]any{"event": event, "data": data})
	require.NoError(t, err)
	e.gw.HandleFrame(context.Background(), c, body)
}

func recv(t *testing.T, c *Client) received {
	t.Helper()
	select {
	case payload := <-c.send:
		var r received
		require.NoError(t, json.Unmarshal(payload, &r))
		return r
	case <-time.After(time.Second):
		t.Fatalf("%s: no event received", c.identity)
		return received{}
	}
}

func recvEvent(t *testing.T, c *Client, event string, into any) {
	t.Helper()
	r := recv(t, c)
	require.Equal(t, event, r.Event, "payload: %s", r.Data)
	if into != nil {
		require.NoError(t, json.Unmarshal(r.Data, into))
	}
}

func requireSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case payload := <-c.send:
		t.Fatalf("%s: unexpected event %s", c.identity, payload)
	default:
	}
}

func drain(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}
