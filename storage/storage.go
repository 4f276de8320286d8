package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Load when no credential is persisted.
var ErrNotFound = errors.New("credential not found")

// ErrUnavailable wraps backend I/O failures.
var ErrUnavailable = errors.New("credential storage unavailable")

// DefaultKey is the key a credential is stored under when none is configured.
const DefaultKey = "token"

// Storage is the persisted-credential port. Exactly one credential exists per
// Storage; Save replaces it and Clear removes it. Clear on an empty Storage is
// not an error.
type Storage interface {
	Load(ctx context.Context) (string, error)
	// Save persists credential. expiresAt is a hint backends with native
	// expiry may honour; a zero value means no hint.
	Save(ctx context.Context, credential string, expiresAt time.Time) error
	Clear(ctx context.Context) error
}
