package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/suPer8Hu/chatcore/internal/chat"
	"github.com/suPer8Hu/chatcore/internal/common"
	"github.com/suPer8Hu/chatcore/internal/observability"
)

type userView struct {
	Username string     `json:"username"`
	IsOnline bool       `json:"is_online"`
	LastSeen *time.Time `json:"last_seen"`
}

// ListUsers reads persisted presence, so it answers even when nobody is
// connected.
func (h *Handler) ListUsers(c *gin.Context) {
	me, okk := identityFromContext(c)
	if !okk {
		unauthorized(c)
		return
	}

	list, err := h.Chat.ListPresence(c.Request.Context(), me)
	if err != nil {
		observability.LoggerFromContext(c.Request.Context(), h.Log).Error("list presence", "err", err)
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to list users")
		return
	}

	common.OK(c, lo.Map(list, func(p chat.Presence, _ int) userView {
		return userView{Username: p.Identity, IsOnline: p.IsOnline, LastSeen: p.LastSeen}
	}))
}

func (h *Handler) GetUnread(c *gin.Context) {
	me, okk := identityFromContext(c)
	if !okk {
		unauthorized(c)
		return
	}
	if h.Unread == nil {
		common.Fail(c, http.StatusServiceUnavailable, 50301, "unread counters are not enabled")
		return
	}

	counts, err := h.Unread.Unread(c.Request.Context(), me)
	if err != nil {
		observability.LoggerFromContext(c.Request.Context(), h.Log).Error("read unread counters", "err", err)
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to read unread counters")
		return
	}

	common.OK(c, gin.H{
		"by_sender": counts,
		"total":     lo.Sum(lo.Values(counts)),
	})
}
