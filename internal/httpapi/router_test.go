package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/chatcore/internal/chat"
	"github.com/suPer8Hu/chatcore/internal/db"
	"github.com/suPer8Hu/chatcore/internal/observability"
	"github.com/suPer8Hu/chatcore/internal/session"
)

const testSecret = "test-secret"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type fakeUnread map[string]map[string]int64

func (f fakeUnread) Unread(_ context.Context, identity string) (map[string]int64, error) {
	if identity == "broken" {
		return nil, errors.New("redis down")
	}
	out := f[identity]
	if out == nil {
		out = map[string]int64{}
	}
	return out, nil
}

type testServer struct {
	router *gin.Engine
	repo   *chat.Repo
	svc    *chat.Service
}

func newTestServer(t *testing.T, unread fakeUnread) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.Connect("sqlite", fmt.Sprintf("file:http_%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gdb) })
	if err := db.Migrate(context.Background(), gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	log := observability.Discard()
	repo := chat.NewRepo(gdb)
	svc := chat.NewService(repo, repo, nil, 0, log)
	deps := Deps{
		Chat:     svc,
		Resolver: session.NewJWTResolver(testSecret, "chatcore"),
		Log:      log,
	}
	if unread != nil {
		deps.Unread = unread
	}
	return &testServer{router: NewRouter(deps), repo: repo, svc: svc}
}

func (s *testServer) get(t *testing.T, path, identity string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if identity != "" {
		tok, err := session.SignToken(testSecret, "chatcore", identity, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	return w, env
}

func TestPingAndNotFound(t *testing.T) {
	s := newTestServer(t, nil)

	w, env := s.get(t, "/ping", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Zero(t, env.Code)
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w, env = s.get(t, "/nowhere", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, 40400, env.Code)
}

func TestListUsers_ReflectsPersistedPresence(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t, nil)
	ctx := context.Background()
	seen := time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)

	req.NoError(s.repo.SetOnline(ctx, "alice", seen))
	req.NoError(s.repo.SetOffline(ctx, "bob", seen))
	req.NoError(s.repo.SetOnline(ctx, "carol", seen))

	w, _ := s.get(t, "/users", "")
	req.Equal(http.StatusUnauthorized, w.Code)

	w, env := s.get(t, "/users", "alice")
	req.Equal(http.StatusOK, w.Code)

	var users []struct {
		Username string     `json:"username"`
		IsOnline bool       `json:"is_online"`
		LastSeen *time.Time `json:"last_seen"`
	}
	req.NoError(json.Unmarshal(env.Data, &users))
	req.Len(users, 2)
	req.Equal("bob", users[0].Username)
	req.False(users[0].IsOnline)
	req.NotNil(users[0].LastSeen)
	req.True(seen.Equal(*users[0].LastSeen))
	req.Equal("carol", users[1].Username)
	req.True(users[1].IsOnline)
}

func TestListConversationMessages(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t, nil)
	ctx := context.Background()

	for _, content := range []string{"first", "second"} {
		_, _, err := s.svc.Send(ctx, "alice", chat.Draft{Target: "bob", Content: content})
		req.NoError(err)
	}

	w, env := s.get(t, "/conversations/alice/messages", "bob")
	req.Equal(http.StatusOK, w.Code)
	var body struct {
		Conversation string         `json:"conversation"`
		Messages     []chat.Message `json:"messages"`
	}
	req.NoError(json.Unmarshal(env.Data, &body))
	req.Equal("alice_bob", body.Conversation)
	req.Len(body.Messages, 2)
	req.Equal("first", body.Messages[0].Content)
	// reading over REST does not mark anything read
	req.Equal(chat.StatusSent, body.Messages[0].Status)

	g := &chat.Group{Name: "g", CreatedBy: "alice"}
	req.NoError(s.repo.CreateGroup(ctx, g, "alice"))
	path := "/conversations/" + url.PathEscape(fmt.Sprintf("group:%d", g.ID)) + "/messages"

	w, env = s.get(t, path, "bob")
	req.Equal(http.StatusForbidden, w.Code)
	req.Equal(40301, env.Code)

	w, _ = s.get(t, path, "alice")
	req.Equal(http.StatusOK, w.Code)
}

func TestGetUnread(t *testing.T) {
	req := require.New(t)

	s := newTestServer(t, nil)
	w, _ := s.get(t, "/unread", "bob")
	req.Equal(http.StatusServiceUnavailable, w.Code)

	s = newTestServer(t, fakeUnread{"bob": {"alice": 2, "carol": 1}})
	w, env := s.get(t, "/unread", "bob")
	req.Equal(http.StatusOK, w.Code)
	var body struct {
		BySender map[string]int64 `json:"by_sender"`
		Total    int64            `json:"total"`
	}
	req.NoError(json.Unmarshal(env.Data, &body))
	req.Equal(map[string]int64{"alice": 2, "carol": 1}, body.BySender)
	req.EqualValues(3, body.Total)

	w, _ = s.get(t, "/unread", "broken")
	req.Equal(http.StatusInternalServerError, w.Code)
}
