package goSession

import (
	"errors"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/transport"
)

var (
	// ErrMalformedCredential is returned when a credential cannot be decoded.
	ErrMalformedCredential = jwt.ErrMalformedCredential
	// ErrExpiredCredential is returned when a credential decodes but has expired.
	ErrExpiredCredential = errors.New("credential expired")
	// ErrStorageUnavailable wraps failures of the persisted storage.
	ErrStorageUnavailable = errors.New("session storage unavailable")
	// ErrSessionInvalidated is matched by errors returned from the HTTP
	// client when the server declared the session invalid.
	ErrSessionInvalidated = transport.ErrSessionInvalidated
	// ErrBuilderUsed is returned by a second call to Build.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrClientClosed is returned by operations on a closed Client.
	ErrClientClosed = errors.New("session client closed")
)
