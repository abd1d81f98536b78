package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/chatcore/internal/chat"
	"github.com/suPer8Hu/chatcore/internal/mocks"
	"github.com/suPer8Hu/chatcore/internal/observability"
	"go.uber.org/mock/gomock"
)

type failingPresenceStore struct{}

func (failingPresenceStore) SetOnline(context.Context, string, time.Time) error {
	return errors.New("store down")
}

func (failingPresenceStore) SetOffline(context.Context, string, time.Time) error {
	return errors.New("store down")
}

type nopPresenceStore struct{}

func (nopPresenceStore) SetOnline(context.Context, string, time.Time) error { return nil }
func (nopPresenceStore) SetOffline(context.Context, string, time.Time) error { return nil }

func TestTracker_ExportsTransitionsOnly(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	exp := mocks.NewMockExporter(ctrl)
	env := newTestEnv(t, envOptions{exporter: exp})

	at := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	env.tracker.now = func() time.Time { return at }

	gomock.InOrder(
		exp.EXPECT().Export(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, evt chat.ExportEvent) error {
			req.Equal(chat.EventPresenceChanged, evt.Kind)
			req.Equal("alice", evt.Identity)
			req.True(*evt.IsOnline)
			req.Nil(evt.LastSeen)
			return nil
		}),
		exp.EXPECT().Export(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, evt chat.ExportEvent) error {
			req.False(*evt.IsOnline)
			req.True(at.Equal(*evt.LastSeen))
			// export failures never break presence
			return errors.New("broker down")
		}),
	)

	ctx := context.Background()
	req.True(env.tracker.Connect(ctx, "alice"))
	req.False(env.tracker.Connect(ctx, "alice"))
	req.False(env.tracker.Disconnect(ctx, "alice"))
	req.True(env.tracker.Disconnect(ctx, "alice"))
	req.False(env.tracker.Disconnect(ctx, "alice"))
	req.False(env.tracker.Online("alice"))
}

func TestTracker_StoreFailureSkipsBroadcast(t *testing.T) {
	req := require.New(t)
	log := observability.Discard()
	hub := NewHub(log)
	tracker := NewTracker(failingPresenceStore{}, hub, nil, log)

	watcher := newClient("watcher", nil, 4)
	hub.Register(watcher)

	req.True(tracker.Connect(context.Background(), "alice"))
	req.True(tracker.Online("alice"))
	requireSilent(t, watcher)
}

func trackedIdentities(tr *Tracker) int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.entries)
}

func TestTracker_ForgetsOfflineIdentities(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t, envOptions{})
	ctx := context.Background()

	for _, identity := range []string{"alice", "bob", "carol"} {
		req.True(env.tracker.Connect(ctx, identity))
		req.True(env.tracker.Disconnect(ctx, identity))
	}
	req.Zero(trackedIdentities(env.tracker))

	// lookups never create state
	req.False(env.tracker.Online("mallory"))
	req.Zero(env.tracker.Count("mallory"))
	req.False(env.tracker.Disconnect(ctx, "mallory"))
	req.Zero(trackedIdentities(env.tracker))

	req.True(env.tracker.Connect(ctx, "alice"))
	req.False(env.tracker.Connect(ctx, "alice"))
	req.Equal(1, trackedIdentities(env.tracker))
	req.False(env.tracker.Disconnect(ctx, "alice"))
	req.Equal(1, trackedIdentities(env.tracker))
	req.True(env.tracker.Disconnect(ctx, "alice"))
	req.Zero(trackedIdentities(env.tracker))
}

func TestTracker_ConcurrentChurnKeepsCountsExact(t *testing.T) {
	req := require.New(t)
	log := observability.Discard()
	tracker := NewTracker(nopPresenceStore{}, NewHub(log), nil, log)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				tracker.Connect(ctx, "alice")
				tracker.Disconnect(ctx, "alice")
			}
		}()
	}
	wg.Wait()

	req.Zero(tracker.Count("alice"))
	req.Zero(trackedIdentities(tracker))
}
