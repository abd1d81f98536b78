package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/suPer8Hu/chatcore/internal/chat"
	"github.com/suPer8Hu/chatcore/internal/conversation"
	"github.com/suPer8Hu/chatcore/internal/session"
)

// ChatService is the part of chat.Service the gateway drives.
type ChatService interface {
	Send(ctx context.Context, sender string, d chat.Draft) (*chat.Message, conversation.Key, error)
	Authorize(ctx context.Context, identity string, key conversation.Key) error
	History(ctx context.Context, viewer string, key conversation.Key) ([]chat.Message, error)
	MarkRead(ctx context.Context, reader, sender string) (int64, error)
}

type Options struct {
	SendBuffer  int
	CheckOrigin func(r *http.Request) bool
}

// Gateway owns the websocket entry point and dispatches client events to the
// router, the pipeline, the typing coordinator and the read receipt flow.
type Gateway struct {
	resolver session.Resolver
	svc      ChatService
	hub      *Hub
	presence *Tracker
	typing   *Coordinator
	log      *slog.Logger

	upgrader   websocket.Upgrader
	sendBuffer int

	mu   sync.Mutex
	live map[*Client]struct{}
}

func NewGateway(resolver session.Resolver, svc ChatService, hub *Hub, presence *Tracker, typing *Coordinator, opts Options, log *slog.Logger) *Gateway {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	return &Gateway{
		resolver: resolver,
		svc:      svc,
		hub:      hub,
		presence: presence,
		typing:   typing,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     opts.CheckOrigin,
		},
		sendBuffer: opts.SendBuffer,
		live:       make(map[*Client]struct{}),
	}
}

// ServeWS authenticates the request and upgrades it. An unknown token gets a
// plain 401 and never reaches the upgrade.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		token = session.BearerToken(r.Header.Get("Authorization"))
	}

	identity, err := g.resolver.Resolve(r.Context(), token)
	if err != nil {
		if errors.Is(err, session.ErrUnknownToken) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		g.log.Error("session lookup failed", "err", err)
		http.Error(w, "session authority unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		g.log.Debug("websocket upgrade failed", "identity", identity, "err", err)
		return
	}

	ctx := r.Context()
	c := newClient(identity, conn, g.sendBuffer)
	g.Connect(ctx, c)
	go c.writePump(g.log)

	c.readPump(ctx, g)
	g.Disconnect(context.WithoutCancel(ctx), c)
}

// Connect registers an authenticated client: identity channel first, then
// presence.
func (g *Gateway) Connect(ctx context.Context, c *Client) {
	g.mu.Lock()
	g.live[c] = struct{}{}
	g.mu.Unlock()

	g.hub.Register(c)
	g.presence.Connect(ctx, c.identity)
	g.log.Info("client connected", "client", c.id, "identity", c.identity)
}

// Disconnect releases every subscription of c and emits exactly one presence
// transition for it. Calling it twice is harmless.
func (g *Gateway) Disconnect(ctx context.Context, c *Client) {
	g.mu.Lock()
	_, ok := g.live[c]
	delete(g.live, c)
	g.mu.Unlock()
	if !ok {
		return
	}

	g.typing.Release(c)
	released := g.hub.Unregister(c)
	c.close()
	g.presence.Disconnect(ctx, c.identity)
	g.log.Info("client disconnected", "client", c.id, "identity", c.identity, "rooms", len(released))
}

// Shutdown disconnects every live client.
func (g *Gateway) Shutdown(ctx context.Context) {
	g.mu.Lock()
	clients := make([]*Client, 0, len(g.live))
	for c := range g.live {
		clients = append(clients, c)
	}
	g.mu.Unlock()

	for _, c := range clients {
		g.Disconnect(ctx, c)
	}
}

// Join subscribes c to the conversation with target, sends it the history
// and, for direct conversations, marks the peer's messages as read.
func (g *Gateway) Join(ctx context.Context, c *Client, target string) error {
	key := conversation.Resolve(c.identity, target)
	if err := g.svc.Authorize(ctx, c.identity, key); err != nil {
		return err
	}
	added := g.hub.Subscribe(c, key)

	history, err := g.svc.History(ctx, c.identity, key)
	if err != nil {
		// a failed join leaves no subscription behind
		if added {
			g.hub.Unsubscribe(c, key)
		}
		return err
	}
	g.hub.Send(c, Outbound{Event: EventHistory, Data: history})

	if key.IsGroup() {
		return nil
	}
	peer := key.Peer(c.identity)
	if peer == c.identity {
		return nil
	}
	return g.MarkRead(ctx, c, peer)
}

func (g *Gateway) Leave(c *Client, target string) {
	g.hub.Unsubscribe(c, conversation.Resolve(c.identity, target))
}

// SendMessage persists the draft and then fans it out to every subscriber of
// its conversation, the sender's own connections included.
func (g *Gateway) SendMessage(ctx context.Context, c *Client, d chat.Draft) error {
	msg, key, err := g.svc.Send(ctx, c.identity, d)
	if err != nil {
		return err
	}
	n := g.hub.Broadcast(key, Outbound{Event: EventMessage, Data: msg}, "")
	g.log.Debug("message delivered", "id", msg.ID, "conversation", key.String(), "receivers", n)
	return nil
}

// Typing relays start or stop. Group indicators require a subscription so a
// non member cannot reach the room.
func (g *Gateway) Typing(c *Client, target string, typing bool) error {
	key := conversation.Resolve(c.identity, target)
	if key.IsGroup() && !g.hub.Subscribed(c, key) {
		return chat.ErrNotMember
	}
	if typing {
		g.typing.Start(c, key)
	} else {
		g.typing.Stop(c, key)
	}
	return nil
}

// MarkRead runs the read receipt flow for messages from sender to c's
// identity. The sender's identity channel hears about it only when something
// changed.
func (g *Gateway) MarkRead(ctx context.Context, c *Client, sender string) error {
	n, err := g.svc.MarkRead(ctx, c.identity, sender)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	g.hub.SendToIdentity(sender, Outbound{
		Event: EventStatusUpdate,
		Data:  StatusUpdatePayload{Reader: c.identity},
	})
	return nil
}

// HandleFrame decodes and dispatches one client frame. Failures are reported
// to c as an error event; the connection stays open.
func (g *Gateway) HandleFrame(ctx context.Context, c *Client, raw []byte) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		g.reject(c, "", err)
		return
	}
	if err := g.dispatch(ctx, c, f); err != nil {
		g.reject(c, f.Event, err)
	}
}

func (g *Gateway) dispatch(ctx context.Context, c *Client, f Frame) error {
	switch f.Event {
	case EventJoinChat, EventLeaveChat, EventTyping, EventStopTyping:
		target, err := decodeTarget(f.Data)
		if err != nil {
			return err
		}
		switch f.Event {
		case EventJoinChat:
			return g.Join(ctx, c, target)
		case EventLeaveChat:
			g.Leave(c, target)
			return nil
		case EventTyping:
			return g.Typing(c, target, true)
		default:
			return g.Typing(c, target, false)
		}

	case EventMessage:
		d, err := decodeDraft(f.Data)
		if err != nil {
			return err
		}
		return g.SendMessage(ctx, c, d)

	case EventMarkRead:
		sender, err := decodeMarkRead(f.Data)
		if err != nil {
			return err
		}
		return g.MarkRead(ctx, c, sender)

	default:
		return fmt.Errorf("%w %q", errUnknownEvent, f.Event)
	}
}

func (g *Gateway) reject(c *Client, event string, err error) {
	code := errorCode(err)
	msg := err.Error()
	if code == CodeInternal {
		g.log.Error("client event failed", "client", c.id, "identity", c.identity, "event", event, "err", err)
		msg = "internal error"
	} else {
		g.log.Debug("client event rejected", "client", c.id, "identity", c.identity, "event", event, "code", code, "err", err)
	}
	g.hub.Send(c, Outbound{
		Event: EventError,
		Data:  ErrorPayload{Event: event, Code: code, Message: msg},
	})
}
