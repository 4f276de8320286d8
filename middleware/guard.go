package middleware

import (
	"net/url"
	"strings"

	goSession "github.com/MrEthical07/goSession"
)

// SessionSource is what guards read. *goSession.Store satisfies it.
type SessionSource interface {
	Snapshot() goSession.Session
}

// Action is what a guard tells the caller to do.
type Action uint8

const (
	// ActionDefer means the session is still initializing; show a loading
	// marker and decide later. It is never a denial.
	ActionDefer Action = iota
	ActionRender
	ActionRedirect
)

func (a Action) String() string {
	switch a {
	case ActionRender:
		return "render"
	case ActionRedirect:
		return "redirect"
	default:
		return "defer"
	}
}

// Decision is the outcome of a guard. Location is set for ActionRedirect;
// User is set for ActionRender on an authenticated session.
type Decision struct {
	Action   Action
	Location string
	User     goSession.User
}

// Guards evaluates the three route guards against one session source.
type Guards struct {
	source SessionSource
	routes goSession.RoutesConfig
}

// New returns guards over source using routes for navigation targets.
// Empty LoginPath, EntryPath and ReturnParam take the defaults.
func New(source SessionSource, routes goSession.RoutesConfig) *Guards {
	def := goSession.DefaultConfig().Routes
	if routes.LoginPath == "" {
		routes.LoginPath = def.LoginPath
	}
	if routes.EntryPath == "" {
		routes.EntryPath = def.EntryPath
	}
	if routes.ReturnParam == "" {
		routes.ReturnParam = def.ReturnParam
	}
	return &Guards{source: source, routes: routes}
}

// Routes returns the navigation targets the guards use.
func (g *Guards) Routes() goSession.RoutesConfig {
	return g.routes
}

// Protected decides for a guarded location. requested is the location
// to return to after login, usually the request URI.
func (g *Guards) Protected(requested string) Decision {
	sess := g.source.Snapshot()
	switch sess.Status {
	case goSession.StatusAuthenticated:
		return Decision{Action: ActionRender, User: sess.User}
	case goSession.StatusUnauthenticated:
		return Decision{Action: ActionRedirect, Location: g.LoginLocation(requested)}
	default:
		return Decision{Action: ActionDefer}
	}
}

// PublicOnly decides for a page meant for anonymous visitors. An
// authenticated user whose role has no destination stays on the page:
// [Guards.RoleEntry] fails closed to the login path for such a role, so a
// redirect to the entry resolver would loop back here.
func (g *Guards) PublicOnly() Decision {
	sess := g.source.Snapshot()
	switch sess.Status {
	case goSession.StatusAuthenticated:
		if _, ok := g.routes.Destination(sess.User.Role); ok {
			return Decision{Action: ActionRedirect, Location: g.routes.EntryPath}
		}
		return Decision{Action: ActionRender}
	case goSession.StatusUnauthenticated:
		return Decision{Action: ActionRender}
	default:
		return Decision{Action: ActionDefer}
	}
}

// RoleEntry resolves where the current session belongs. It never renders.
func (g *Guards) RoleEntry() Decision {
	sess := g.source.Snapshot()
	switch sess.Status {
	case goSession.StatusAuthenticated:
		if path, ok := g.routes.Destination(sess.User.Role); ok {
			return Decision{Action: ActionRedirect, Location: path, User: sess.User}
		}
		return Decision{Action: ActionRedirect, Location: g.routes.LoginPath}
	case goSession.StatusUnauthenticated:
		return Decision{Action: ActionRedirect, Location: g.routes.LoginPath}
	default:
		return Decision{Action: ActionDefer}
	}
}

// LoginLocation is the login path carrying requested as the return
// location. Non-local or empty locations are dropped.
func (g *Guards) LoginLocation(requested string) string {
	path, ok := SafeReturnPath(requested)
	if !ok || path == g.routes.LoginPath {
		return g.routes.LoginPath
	}
	return g.routes.LoginPath + "?" + url.Values{g.routes.ReturnParam: {path}}.Encode()
}

// SafeReturnPath accepts only paths on this origin: absolute, not
// protocol-relative, without a scheme or host.
func SafeReturnPath(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.ContainsAny(raw, "\\\r\n") {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	return u.RequestURI(), true
}
