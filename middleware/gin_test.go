package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ginRouter(g *Guards) *gin.Engine {
	r := gin.New()
	r.GET("/", g.GinRoleEntry())
	r.GET("/login", g.GinPublicOnly(), func(c *gin.Context) {
		c.String(http.StatusOK, "login form")
	})
	r.GET("/student", g.GinProtected(), func(c *gin.Context) {
		v, _ := c.Get(GinUserKey)
		user, _ := v.(goSession.User)
		fromCtx, _ := UserFromContext(c.Request.Context())
		c.String(http.StatusOK, "hello %s/%s", user.Username, fromCtx.Username)
	})
	return r
}

func serve(r http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestGinProtected(t *testing.T) {
	tests := []struct {
		name     string
		src      SessionSource
		code     int
		location string
		body     string
	}{
		{name: "anonymous redirects to login", src: anonymous(), code: http.StatusFound, location: "/login?from=%2Fstudent"},
		{name: "initializing defers", src: initializing(), code: http.StatusServiceUnavailable, body: "session loading\n"},
		{name: "authenticated renders", src: signedIn("student"), code: http.StatusOK, body: "hello ana/ana"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(ginRouter(testGuards(tt.src)), "/student")
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestGinPublicOnlyAndRoleEntry(t *testing.T) {
	r := ginRouter(testGuards(signedIn("admin")))

	rec := serve(r, "/login")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = serve(r, "/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))

	rec = serve(ginRouter(testGuards(anonymous())), "/login")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "login form", rec.Body.String())
}

func TestGinDeferredHeaders(t *testing.T) {
	rec := serve(ginRouter(testGuards(initializing())), "/")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}
