package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/chatcore/internal/chat"
	"github.com/suPer8Hu/chatcore/internal/common"
	"github.com/suPer8Hu/chatcore/internal/conversation"
	"github.com/suPer8Hu/chatcore/internal/observability"
)

// ListConversationMessages returns the same history a join would deliver,
// without subscribing or marking anything read.
func (h *Handler) ListConversationMessages(c *gin.Context) {
	me, okk := identityFromContext(c)
	if !okk {
		unauthorized(c)
		return
	}

	target := strings.TrimSpace(c.Param("target"))
	if target == "" {
		common.Fail(c, http.StatusBadRequest, 40001, "target is required")
		return
	}
	key := conversation.Resolve(me, target)

	msgs, err := h.Chat.History(c.Request.Context(), me, key)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrNotMember):
			common.Fail(c, http.StatusForbidden, 40301, "not a member of this group")
		case errors.Is(err, chat.ErrMissingTarget):
			common.Fail(c, http.StatusBadRequest, 40001, "target is required")
		default:
			observability.LoggerFromContext(c.Request.Context(), h.Log).Error("load history", "conversation", key.String(), "err", err)
			common.Fail(c, http.StatusInternalServerError, 50002, "failed to list messages")
		}
		return
	}

	common.OK(c, gin.H{
		"conversation": key.String(),
		"messages":     msgs,
	})
}
