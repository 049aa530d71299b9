package admin

import (
	"crypto/hmac"
	"net/http"

	"github.com/gin-gonic/gin"

	"autofill-backend/internal/shared/server/respond"
)

// RequireKey guards the operator routes with a shared API key. An empty
// configured key disables the surface entirely.
func RequireKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			respond.Error(c, http.StatusForbidden, "admin_disabled", "Admin API is not enabled", nil)
			return
		}
		presented := c.GetHeader("X-Admin-Key")
		if presented == "" || !hmac.Equal([]byte(presented), []byte(key)) {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "invalid admin key", nil)
			return
		}
		c.Next()
	}
}
