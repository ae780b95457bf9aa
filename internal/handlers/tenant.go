package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	tenantCookie     = "hr_tenant"
	tenantContextKey = "tenantID"
	tenantCookieAge  = 7 * 24 * 60 * 60
)

// TenantMiddleware gives every browser its own workspace. The tenant id lives
// in a cookie; a missing or malformed cookie gets a fresh UUID.
func (h *HTTPHandler) TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(tenantCookie)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(tenantCookie, id, tenantCookieAge, "/", "", h.secureCookies, true)
		}
		c.Set(tenantContextKey, id)
		c.Next()
	}
}

func tenantID(c *gin.Context) string {
	return c.GetString(tenantContextKey)
}
