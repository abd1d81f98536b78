package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/chatcore/internal/common"
	"github.com/suPer8Hu/chatcore/internal/observability"
)

const (
	RequestIDHeader = "X-Request-ID"
	RequestIDKey    = "request_id"
)

// RequestID reuses an incoming X-Request-ID or mints a ULID, and exposes it
// on the gin context, the request context and the response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if rid == "" {
			id, err := common.NewULID()
			if err == nil {
				rid = id
			}
		}
		if rid != "" {
			c.Set(RequestIDKey, rid)
			c.Header(RequestIDHeader, rid)
			c.Request = c.Request.WithContext(observability.WithRequestID(c.Request.Context(), rid))
		}
		c.Next()
	}
}
