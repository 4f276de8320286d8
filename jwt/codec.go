package jwt

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedCredential is returned by [Decode] when a credential cannot be
// split into header, claims and signature segments, or when a required claim
// is missing or has the wrong type.
var ErrMalformedCredential = errors.New("malformed credential")

// Claims is the structured view of a credential. It is always re-derived from
// the credential and never persisted on its own.
type Claims struct {
	Subject   string
	Role      string
	IssuedAt  int64
	ExpiresAt int64
}

type wireClaims struct {
	Role *string `json:"role"`
	jwt.RegisteredClaims
}

var parser = jwt.NewParser(jwt.WithoutClaimsValidation())

// Decode parses credential into [Claims] without verifying its signature.
// Signature verification belongs to the issuing server; the client only
// replays the credential.
func Decode(credential string) (Claims, error) {
	if credential == "" {
		return Claims{}, fmt.Errorf("%w: empty", ErrMalformedCredential)
	}
	if strings.TrimSpace(credential) != credential {
		return Claims{}, fmt.Errorf("%w: surrounding whitespace", ErrMalformedCredential)
	}
	if strings.Count(credential, ".") != 2 {
		return Claims{}, fmt.Errorf("%w: expected three segments", ErrMalformedCredential)
	}

	wc := &wireClaims{}
	if _, _, err := parser.ParseUnverified(credential, wc); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformedCredential, err)
	}

	switch {
	case wc.Subject == "":
		return Claims{}, fmt.Errorf("%w: missing sub", ErrMalformedCredential)
	case wc.Role == nil || *wc.Role == "":
		return Claims{}, fmt.Errorf("%w: missing role", ErrMalformedCredential)
	case wc.IssuedAt == nil:
		return Claims{}, fmt.Errorf("%w: missing iat", ErrMalformedCredential)
	case wc.ExpiresAt == nil:
		return Claims{}, fmt.Errorf("%w: missing exp", ErrMalformedCredential)
	}

	return Claims{
		Subject:   wc.Subject,
		Role:      *wc.Role,
		IssuedAt:  wc.IssuedAt.Unix(),
		ExpiresAt: wc.ExpiresAt.Unix(),
	}, nil
}

// Bounds of an exp that can be compared in milliseconds without overflow.
const (
	minExpSeconds = math.MinInt64 / 1000
	maxExpSeconds = math.MaxInt64 / 1000
)

// IsExpired reports whether claims are expired at now. A credential that
// expires exactly at now is expired.
func IsExpired(claims Claims, now time.Time) bool {
	switch {
	case claims.ExpiresAt <= minExpSeconds:
		return true
	case claims.ExpiresAt >= maxExpSeconds:
		return false
	}
	return claims.ExpiresAt*1000 <= now.UnixMilli()
}

// ExpiresAtTime returns the expiry instant of claims.
func (c Claims) ExpiresAtTime() time.Time {
	return time.Unix(c.ExpiresAt, 0)
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0)
}
