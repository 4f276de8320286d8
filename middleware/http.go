package middleware

import (
	"context"
	"io"
	"net/http"
	"strconv"

	goSession "github.com/MrEthical07/goSession"
)

type userContextKey struct{}

// UserFromContext returns the user attached by an authenticated guard.
func UserFromContext(ctx context.Context) (goSession.User, bool) {
	u, ok := ctx.Value(userContextKey{}).(goSession.User)
	return u, ok
}

func withUser(ctx context.Context, u goSession.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

// RequireSession renders next only for an authenticated session.
func (g *Guards) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.serve(w, r, g.Protected(r.URL.RequestURI()), next)
	})
}

// RequireAnonymous renders next only when there is no routable session.
func (g *Guards) RequireAnonymous(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.serve(w, r, g.PublicOnly(), next)
	})
}

// RoleEntryHandler redirects to the session's role destination.
func (g *Guards) RoleEntryHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.serve(w, r, g.RoleEntry(), nil)
	})
}

// ReturnTo returns the return location carried by a login request, or
// fallback when it is missing or not local.
func (g *Guards) ReturnTo(r *http.Request, fallback string) string {
	if path, ok := SafeReturnPath(r.URL.Query().Get(g.routes.ReturnParam)); ok && path != g.routes.LoginPath {
		return path
	}
	return fallback
}

func (g *Guards) serve(w http.ResponseWriter, r *http.Request, d Decision, next http.Handler) {
	switch d.Action {
	case ActionRedirect:
		http.Redirect(w, r, d.Location, http.StatusFound)
	case ActionRender:
		if next == nil {
			http.NotFound(w, r)
			return
		}
		if d.User.Username != "" {
			r = r.WithContext(withUser(r.Context(), d.User))
		}
		next.ServeHTTP(w, r)
	default:
		g.writeDeferred(w)
	}
}

// writeDeferred answers while the session is initializing. It is a retry
// hint, never a denial.
func (g *Guards) writeDeferred(w http.ResponseWriter) {
	w.Header().Set("Retry-After", retryAfter(g.routes))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = io.WriteString(w, deferredBody)
}

const deferredBody = "session loading\n"

func retryAfter(routes goSession.RoutesConfig) string {
	secs := int(routes.DeferredRetryAfter.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
