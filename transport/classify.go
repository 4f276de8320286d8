package transport

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Class is the outcome of classifying a response.
type Class uint8

const (
	// ClassPass is any response that is neither a session failure nor a
	// business denial. It propagates unchanged.
	ClassPass Class = iota
	// ClassSessionInvalid means the server declared the session invalid.
	ClassSessionInvalid
	// ClassBusinessDenied is a 403 that does not concern the session.
	ClassBusinessDenied
)

func (c Class) String() string {
	switch c {
	case ClassSessionInvalid:
		return "session_invalid"
	case ClassBusinessDenied:
		return "business_denied"
	default:
		return "pass"
	}
}

// DefaultAuthMarkers are the substrings that mark a 403 message as an
// authentication failure. Matching is case-insensitive.
var DefaultAuthMarkers = []string{
	"token",
	"sesión",
	"sesion",
	"session",
	"autenticación",
	"autenticacion",
	"authentication",
	"permisos insuficientes",
	"insufficient permissions",
}

// Classifier decides whether a failed response invalidates the session.
type Classifier struct {
	markers []string
}

// NewClassifier builds a Classifier. Empty markers use [DefaultAuthMarkers].
func NewClassifier(markers []string) *Classifier {
	if len(markers) == 0 {
		markers = DefaultAuthMarkers
	}
	lowered := make([]string, 0, len(markers))
	for _, m := range markers {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			lowered = append(lowered, m)
		}
	}
	return &Classifier{markers: lowered}
}

// Classify inspects a status and the JSON body of a response. Every 401 is
// treated as a session failure. A 403 is a session failure only when its
// message field carries an auth marker.
func (c *Classifier) Classify(status int, body []byte) Class {
	switch status {
	case http.StatusUnauthorized:
		return ClassSessionInvalid
	case http.StatusForbidden:
		if c.IsAuthFailureMessage(Message(body)) {
			return ClassSessionInvalid
		}
		return ClassBusinessDenied
	default:
		return ClassPass
	}
}

// IsAuthFailureMessage reports whether msg contains an auth marker.
func (c *Classifier) IsAuthFailureMessage(msg string) bool {
	if msg == "" {
		return false
	}
	msg = strings.ToLower(msg)
	for _, m := range c.markers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// Message returns the "message" field of a JSON error body, or "" when the
// body is not a JSON object carrying one.
func Message(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Message
}
