package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/chatcore/internal/common"
	"github.com/suPer8Hu/chatcore/internal/httpapi/handlers"
	"github.com/suPer8Hu/chatcore/internal/httpapi/middleware"
	"github.com/suPer8Hu/chatcore/internal/session"
)

type Deps struct {
	Chat     handlers.ChatService
	Unread   handlers.UnreadReader
	Resolver session.Resolver
	// WebSocket authenticates on its own and upgrades the request.
	WebSocket http.HandlerFunc
	Log       *slog.Logger
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.Recovery(d.Log))

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(d.Log))

	h := handlers.NewHandler(d.Chat, d.Unread, d.Log)

	r.GET("/ping", h.Ping)
	if d.WebSocket != nil {
		r.GET("/ws", gin.WrapF(d.WebSocket))
	}

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(d.Resolver))
	authGroup.GET("/users", h.ListUsers)
	authGroup.GET("/conversations/:target/messages", h.ListConversationMessages)
	authGroup.GET("/unread", h.GetUnread)
	return r
}
