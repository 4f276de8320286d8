package transport

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultMaxBodyBytes bounds how much of a 401/403 body is inspected.
	DefaultMaxBodyBytes = 64 << 10
	// DefaultLoginPath is where Recovery navigates after a forced logout.
	DefaultLoginPath = "/login"
	// DefaultNotice is the message surfaced after a forced logout.
	DefaultNotice = "Your session has ended. Please sign in again."
)

// RecoveryOptions configures [NewRecovery]. Zero fields take defaults.
type RecoveryOptions struct {
	Classifier   *Classifier
	Navigator    Navigator
	Notifier     Notifier
	Observer     Observer
	Logger       *slog.Logger
	LoginPath    string
	Notice       string
	MaxBodyBytes int64
}

// Recovery turns server-declared session failures into a single forced
// logout. Concurrent failures for the same credential collapse into one
// termination, one notice, and one navigation.
type Recovery struct {
	next       http.RoundTripper
	resolve    func() Terminator
	classifier *Classifier
	navigator  Navigator
	notifier   Notifier
	observer   Observer
	logger     *slog.Logger
	loginPath  string
	notice     string
	maxBody    int64
	group      singleflight.Group
}

// NewRecovery wraps next. resolve is called at the moment of a failure, not
// at construction, so the Terminator may be bound after the transport is
// built.
func NewRecovery(next http.RoundTripper, resolve func() Terminator, opts RecoveryOptions) *Recovery {
	if next == nil {
		next = http.DefaultTransport
	}
	r := &Recovery{
		next:       next,
		resolve:    resolve,
		classifier: opts.Classifier,
		navigator:  opts.Navigator,
		notifier:   opts.Notifier,
		observer:   opts.Observer,
		logger:     opts.Logger,
		loginPath:  opts.LoginPath,
		notice:     opts.Notice,
		maxBody:    opts.MaxBodyBytes,
	}
	if r.classifier == nil {
		r.classifier = NewClassifier(nil)
	}
	if r.navigator == nil {
		r.navigator = nopNavigator{}
	}
	if r.notifier == nil {
		r.notifier = nopNotifier{}
	}
	if r.observer == nil {
		r.observer = NopObserver{}
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.loginPath == "" {
		r.loginPath = DefaultLoginPath
	}
	if r.notice == "" {
		r.notice = DefaultNotice
	}
	if r.maxBody <= 0 {
		r.maxBody = DefaultMaxBodyBytes
	}
	return r
}

// RoundTrip propagates transport errors and non-session failures unchanged.
// A session failure is returned as a [*SessionInvalidatedError] after the
// session has been terminated.
func (r *Recovery) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := r.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
		return resp, nil
	}

	// A request sent without a credential has no session to end, so a
	// rejected login attempt reaches the caller as a plain response.
	credential, ok := BearerCredential(req.Header.Get("Authorization"))
	if !ok {
		return resp, nil
	}

	body := peekBody(resp, r.maxBody)
	class := r.classifier.Classify(resp.StatusCode, body)
	r.observer.ResponseClassified(class)
	if class != ClassSessionInvalid {
		return resp, nil
	}

	if resp.Body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, r.maxBody))
		_ = resp.Body.Close()
	}

	reason := ReasonUnauthorized
	if resp.StatusCode == http.StatusForbidden {
		reason = ReasonForbiddenAuth
	}
	r.terminate(context.WithoutCancel(req.Context()), credential, reason, resp.StatusCode)

	return nil, &SessionInvalidatedError{
		StatusCode: resp.StatusCode,
		Message:    Message(body),
		Reason:     reason,
	}
}

// terminate forces logout at most once per credential in flight. Only the
// caller whose ForceLogout actually ended the session notifies and navigates.
func (r *Recovery) terminate(ctx context.Context, credential, reason string, status int) {
	performed := false
	_, err, _ := r.group.Do(credential, func() (any, error) {
		var t Terminator
		if r.resolve != nil {
			t = r.resolve()
		}
		if t == nil {
			return nil, ErrNoTerminator
		}
		done, err := t.ForceLogout(ctx, credential, reason)
		if err != nil {
			return nil, err
		}
		if !done {
			return nil, nil
		}
		performed = true
		r.notifier.Notify(ctx, Notice{Message: r.notice, Reason: reason, StatusCode: status})
		r.navigator.Navigate(ctx, r.loginPath)
		return nil, nil
	})
	if err != nil {
		r.logger.Warn("forced logout failed", slog.String("reason", reason), slog.Any("error", err))
	}
	if !performed {
		r.observer.TerminationDeduplicated()
	}
}

// replayBody serves bytes already read from a body before the remainder.
type replayBody struct {
	io.Reader
	io.Closer
}

// peekBody reads up to limit bytes and restores resp.Body so the caller
// still sees the full, unconsumed stream.
func peekBody(resp *http.Response, limit int64) []byte {
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil
	}
	buf, _ := io.ReadAll(io.LimitReader(resp.Body, limit))
	resp.Body = &replayBody{
		Reader: io.MultiReader(bytes.NewReader(buf), resp.Body),
		Closer: resp.Body,
	}
	return buf
}

// CloseIdleConnections forwards to the wrapped transport.
func (r *Recovery) CloseIdleConnections() { closeIdle(r.next) }
