package goSession

import "time"

// Status is the authentication status of the process.
type Status uint8

const (
	// StatusInitializing is held until the bootstrapper has read storage.
	// Guards treat it as "decision deferred".
	StatusInitializing Status = iota
	StatusUnauthenticated
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// User is the identity carried by an authenticated session.
type User struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Session is an immutable view of the store. User and ExpiresAt are set only
// when Status is StatusAuthenticated.
type Session struct {
	Status    Status    `json:"status"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Authenticated reports whether s is an authenticated session.
func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

var unauthenticated = Session{Status: StatusUnauthenticated}
