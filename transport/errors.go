package transport

import (
	"errors"
	"fmt"
)

// Termination reasons passed to [Terminator.ForceLogout].
const (
	ReasonUnauthorized  = "unauthorized"
	ReasonForbiddenAuth = "forbidden_auth"
)

var (
	// ErrSessionInvalidated is matched by every [SessionInvalidatedError].
	ErrSessionInvalidated = errors.New("session invalidated")
	// ErrNoTerminator is returned when Recovery cannot resolve a Terminator.
	ErrNoTerminator = errors.New("session terminator not bound")
)

// SessionInvalidatedError is returned in place of a response the server used
// to declare the session invalid.
type SessionInvalidatedError struct {
	StatusCode int
	Message    string
	Reason     string
}

func (e *SessionInvalidatedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("session invalidated (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("session invalidated (status %d): %s", e.StatusCode, e.Message)
}

func (e *SessionInvalidatedError) Unwrap() error {
	return ErrSessionInvalidated
}
