package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/chatcore/internal/chat"
	"github.com/suPer8Hu/chatcore/internal/common"
	"github.com/suPer8Hu/chatcore/internal/conversation"
	"github.com/suPer8Hu/chatcore/internal/httpapi/middleware"
)

type ChatService interface {
	History(ctx context.Context, viewer string, key conversation.Key) ([]chat.Message, error)
	ListPresence(ctx context.Context, exclude string) ([]chat.Presence, error)
}

// UnreadReader serves the unread projection built by the worker.
type UnreadReader interface {
	Unread(ctx context.Context, identity string) (map[string]int64, error)
}

type Handler struct {
	Chat   ChatService
	Unread UnreadReader // nil when redis is not configured
	Log    *slog.Logger
}

func NewHandler(svc ChatService, unread UnreadReader, log *slog.Logger) *Handler {
	return &Handler{Chat: svc, Unread: unread, Log: log}
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, "pong")
}

func identityFromContext(c *gin.Context) (string, bool) {
	return middleware.IdentityFromContext(c)
}

func unauthorized(c *gin.Context) {
	common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
}
