package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/chatcore/internal/common"
	"github.com/suPer8Hu/chatcore/internal/session"
)

const IdentityKey = "identity"

// AuthRequired resolves the bearer token and stores the identity under
// IdentityKey.
func AuthRequired(resolver session.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := session.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			common.Fail(c, http.StatusUnauthorized, 40100, "missing token")
			return
		}

		identity, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, session.ErrUnknownToken) {
				common.Fail(c, http.StatusUnauthorized, 40101, "invalid token")
				return
			}
			common.Fail(c, http.StatusServiceUnavailable, 50300, "session authority unavailable")
			return
		}

		c.Set(IdentityKey, identity)
		c.Next()
	}
}

func IdentityFromContext(c *gin.Context) (string, bool) {
	v := c.GetString(IdentityKey)
	return v, v != ""
}
