package transport

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MrEthical07/goSession/storage"
)

const bearerPrefix = "Bearer "

// Authenticator attaches the persisted credential to outbound requests. It
// reads storage on every request, so it authenticates correctly even before
// the session store has been initialized.
type Authenticator struct {
	next     http.RoundTripper
	source   CredentialSource
	observer Observer
	logger   *slog.Logger
}

// NewAuthenticator wraps next. A nil next uses [http.DefaultTransport].
func NewAuthenticator(next http.RoundTripper, source CredentialSource, observer Observer, logger *slog.Logger) *Authenticator {
	if next == nil {
		next = http.DefaultTransport
	}
	if observer == nil {
		observer = NopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{next: next, source: source, observer: observer, logger: logger}
}

// RoundTrip never fails on account of the credential: an absent or
// unreadable credential sends the request unmodified. A request that already
// carries an Authorization header is left as is.
func (a *Authenticator) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") != "" || a.source == nil {
		return a.next.RoundTrip(req)
	}

	credential, err := a.source.Load(req.Context())
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		a.logger.Debug("credential unreadable, sending request unauthenticated", slog.Any("error", err))
	}
	if err != nil || credential == "" {
		a.observer.CredentialAttached(false)
		return a.next.RoundTrip(req)
	}

	authed := req.Clone(req.Context())
	authed.Header.Set("Authorization", bearerPrefix+credential)
	a.observer.CredentialAttached(true)
	return a.next.RoundTrip(authed)
}

// BearerCredential extracts the credential from a bearer Authorization
// header value.
func BearerCredential(header string) (string, bool) {
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	credential := strings.TrimSpace(header[len(bearerPrefix):])
	if credential == "" {
		return "", false
	}
	return credential, true
}

// CloseIdleConnections forwards to the wrapped transport.
func (a *Authenticator) CloseIdleConnections() { closeIdle(a.next) }
