package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GinUserKey is the gin context key holding the authenticated user.
const GinUserKey = "session.user"

// GinProtected is the gin form of [Guards.RequireSession].
func (g *Guards) GinProtected() gin.HandlerFunc {
	return func(c *gin.Context) {
		g.ginApply(c, g.Protected(c.Request.URL.RequestURI()))
	}
}

// GinPublicOnly is the gin form of [Guards.RequireAnonymous].
func (g *Guards) GinPublicOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		g.ginApply(c, g.PublicOnly())
	}
}

// GinRoleEntry is the gin form of [Guards.RoleEntryHandler].
func (g *Guards) GinRoleEntry() gin.HandlerFunc {
	return func(c *gin.Context) {
		g.ginApply(c, g.RoleEntry())
	}
}

func (g *Guards) ginApply(c *gin.Context, d Decision) {
	switch d.Action {
	case ActionRedirect:
		c.Redirect(http.StatusFound, d.Location)
		c.Abort()
	case ActionRender:
		if d.User.Username != "" {
			c.Set(GinUserKey, d.User)
			c.Request = c.Request.WithContext(withUser(c.Request.Context(), d.User))
		}
		c.Next()
	default:
		c.Header("Retry-After", retryAfter(g.routes))
		c.Header("Cache-Control", "no-store")
		c.String(http.StatusServiceUnavailable, deferredBody)
		c.Abort()
	}
}
