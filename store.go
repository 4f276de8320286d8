package goSession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/storage"
)

// Termination reasons recorded in logs and audit events.
const (
	ReasonLogout  = "logout"
	ReasonExpired = "expired"
	ReasonForced  = "forced"
)

// CacheInvalidator drops every request-layer entry. The store calls it
// whenever the identity behind the cached data leaves.
type CacheInvalidator interface {
	InvalidateAll()
}

// Listener observes store transitions.
type Listener func(Session)

type listenerEntry struct {
	id uint64
	fn Listener
}

// Store is the process-wide session. It is the single source of truth for
// "is there a valid session, and who is it"; persisted storage holds the
// credential it is derived from and the two are only ever updated together.
//
// Mutations are serialised by one mutex. [Store.Snapshot] is a lock-free
// read and never blocks.
type Store struct {
	mu         sync.Mutex
	credential string
	disarm     func() bool
	closed     bool

	current atomic.Pointer[Session]

	listenersMu  sync.Mutex
	listeners    atomic.Pointer[[]listenerEntry]
	nextListener uint64

	storage      storage.Storage
	invalidators []CacheInvalidator
	audit        *audit.Dispatcher
	metrics      *Metrics
	logger       *slog.Logger
	now          func() time.Time
	afterFunc    func(time.Duration, func()) func() bool
}

// NewStore returns a store in [StatusInitializing] over st. A nil st uses
// memory storage.
func NewStore(st storage.Storage) *Store {
	if st == nil {
		st = storage.NewMemory()
	}
	s := &Store{
		storage:   st,
		logger:    slog.Default(),
		now:       time.Now,
		afterFunc: afterFunc,
	}
	s.current.Store(&Session{Status: StatusInitializing})
	s.listeners.Store(&[]listenerEntry{})
	return s
}

func afterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Snapshot returns the current session. A session whose expiry has passed
// reads as unauthenticated even before the expiry timer has fired.
func (s *Store) Snapshot() Session {
	sess := *s.current.Load()
	if sess.Status == StatusAuthenticated && !s.now().Before(sess.ExpiresAt) {
		return unauthenticated
	}
	return sess
}

// Subscribe registers fn for every subsequent transition. Listeners run
// synchronously, in transition order, after the transition is applied; they
// may read the store and cancel themselves but must not call mutating
// methods. The returned cancel is idempotent.
func (s *Store) Subscribe(fn Listener) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	s.listenersMu.Lock()
	id := s.nextListener
	s.nextListener++
	old := *s.listeners.Load()
	next := make([]listenerEntry, len(old), len(old)+1)
	copy(next, old)
	next = append(next, listenerEntry{id: id, fn: fn})
	s.listeners.Store(&next)
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			defer s.listenersMu.Unlock()
			old := *s.listeners.Load()
			next := make([]listenerEntry, 0, len(old))
			for _, l := range old {
				if l.id != id {
					next = append(next, l)
				}
			}
			s.listeners.Store(&next)
		})
	}
}

// Initialize discards in-memory state and re-derives the session from
// storage. A malformed or expired credential is cleared and yields
// [StatusUnauthenticated]. An unreadable storage also yields
// StatusUnauthenticated, with an error wrapping [ErrStorageUnavailable].
func (s *Store) Initialize(ctx context.Context) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.credential
	s.disarmLocked()

	credential, err := s.storage.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.settleLocked(previous)
		s.recordBootstrap(ctx, unauthenticated, "")
		return unauthenticated, nil
	case err != nil:
		s.metrics.Inc(MetricStorageFailure)
		s.metrics.Inc(MetricBootstrapDegraded)
		s.logger.Warn("session storage unreadable, starting unauthenticated", slog.Any("error", err))
		s.settleLocked(previous)
		s.recordBootstrap(ctx, unauthenticated, "storage_unavailable")
		return unauthenticated, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	claims, err := s.admit(credential)
	if err != nil {
		s.logger.Info("discarding persisted credential", slog.String("reason", rejectReason(err)))
		s.clearStorageLocked(ctx)
		s.settleLocked(previous)
		s.recordBootstrap(ctx, unauthenticated, rejectReason(err))
		return unauthenticated, nil
	}

	sess := s.authenticateLocked(credential, claims, previous)
	s.recordBootstrap(ctx, sess, "")
	return sess, nil
}

// Login persists credential and authenticates it. A malformed or expired
// credential is discarded, any previous session ends, and the error wraps
// [ErrMalformedCredential] or [ErrExpiredCredential]. When storage cannot
// be written the session is left as it was.
func (s *Store) Login(ctx context.Context, credential string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.credential

	claims, err := s.admit(credential)
	if err != nil {
		s.metrics.Inc(MetricLoginRejected)
		s.logger.Warn("login credential rejected", slog.String("reason", rejectReason(err)))
		s.emitAudit(ctx, AuditEvent{
			Type:   AuditLoginRejected,
			Reason: rejectReason(err),
			Error:  err.Error(),
		})
		s.disarmLocked()
		s.clearStorageLocked(ctx)
		s.settleLocked(previous)
		return unauthenticated, err
	}

	if err := s.storage.Save(ctx, credential, claims.ExpiresAtTime()); err != nil {
		s.metrics.Inc(MetricStorageFailure)
		s.logger.Warn("session storage write failed", slog.Any("error", err))
		return *s.current.Load(), fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	s.disarmLocked()
	sess := s.authenticateLocked(credential, claims, previous)
	s.metrics.Inc(MetricLoginSuccess)
	s.logger.Info("session started",
		slog.String("username", sess.User.Username),
		slog.String("role", sess.User.Role),
		slog.Time("expires_at", sess.ExpiresAt),
	)
	s.emitAudit(ctx, AuditEvent{
		Type:     AuditLoginSuccess,
		Username: sess.User.Username,
		Role:     sess.User.Role,
		Success:  true,
	})
	return sess, nil
}

// Logout ends the session. On an unauthenticated session it only makes sure
// storage is empty; calling it twice is the same as calling it once. A
// store that has not bootstrapped yet ends unauthenticated.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.credential == "" {
		err := s.storage.Clear(ctx)
		if s.current.Load().Status == StatusInitializing {
			s.disarmLocked()
			s.settleLocked("")
		}
		if err != nil {
			s.metrics.Inc(MetricStorageFailure)
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		return nil
	}
	return s.terminateLocked(ctx, AuditLogout, ReasonLogout)
}

// ForceLogout ends the session that credential belongs to, on behalf of a
// failed request. It reports whether this call ended a session: it returns
// false when there is no session, or when credential has since been
// replaced, so a late failure never ends a newer session. An empty
// credential targets whatever session is current.
//
// ForceLogout satisfies transport.Terminator.
func (s *Store) ForceLogout(ctx context.Context, credential, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.credential
	if current == "" && s.current.Load().Status == StatusInitializing {
		// Requests may carry the stored credential before bootstrap ran.
		if stored, err := s.storage.Load(ctx); err == nil {
			current = stored
		}
	}
	if current == "" {
		return false, nil
	}
	if credential != "" && credential != current {
		s.logger.Debug("ignoring failure for a replaced credential", slog.String("reason", reason))
		return false, nil
	}
	if reason == "" {
		reason = ReasonForced
	}
	return true, s.terminateLocked(ctx, AuditForcedLogout, reason)
}

// Close stops the expiry timer. The store stays readable.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.disarmLocked()
}

// admit decodes credential and rejects it when it has expired.
func (s *Store) admit(credential string) (jwt.Claims, error) {
	claims, err := jwt.Decode(credential)
	if err != nil {
		return jwt.Claims{}, err
	}
	if jwt.IsExpired(claims, s.now()) {
		return jwt.Claims{}, ErrExpiredCredential
	}
	return claims, nil
}

func (s *Store) authenticateLocked(credential string, claims jwt.Claims, previous string) Session {
	if previous != "" && previous != credential {
		s.invalidateCaches()
	}
	s.credential = credential
	sess := Session{
		Status:    StatusAuthenticated,
		User:      User{Username: claims.Subject, Role: claims.Role},
		ExpiresAt: claims.ExpiresAtTime(),
	}
	s.armLocked(credential, sess.ExpiresAt)
	s.transitionLocked(sess)
	return sess
}

// settleLocked moves to unauthenticated without touching storage.
func (s *Store) settleLocked(previous string) {
	s.credential = ""
	if previous != "" {
		s.invalidateCaches()
	}
	s.transitionLocked(unauthenticated)
}

// terminateLocked clears storage, drops caches and transitions to
// unauthenticated. The transition happens even when storage fails to
// clear so the process never keeps acting as a session the caller ended.
func (s *Store) terminateLocked(ctx context.Context, eventType, reason string) error {
	start := time.Now()
	user := s.current.Load().User

	s.disarmLocked()
	var err error
	if cerr := s.storage.Clear(ctx); cerr != nil {
		s.metrics.Inc(MetricStorageFailure)
		s.logger.Warn("session storage clear failed", slog.Any("error", cerr))
		err = fmt.Errorf("%w: %v", ErrStorageUnavailable, cerr)
	}
	s.credential = ""
	s.invalidateCaches()
	s.transitionLocked(unauthenticated)

	switch eventType {
	case AuditLogout:
		s.metrics.Inc(MetricLogout)
	case AuditForcedLogout:
		s.metrics.Inc(MetricForcedLogout)
	case AuditExpired:
		s.metrics.Inc(MetricSessionExpired)
	}
	s.metrics.Observe(MetricTerminationLatency, time.Since(start))

	s.logger.Info("session ended", slog.String("event", eventType), slog.String("reason", reason))
	event := AuditEvent{
		Type:     eventType,
		Username: user.Username,
		Role:     user.Role,
		Reason:   reason,
		Success:  err == nil,
	}
	if err != nil {
		event.Error = err.Error()
	}
	s.emitAudit(ctx, event)
	return err
}

func (s *Store) clearStorageLocked(ctx context.Context) {
	if err := s.storage.Clear(ctx); err != nil {
		s.metrics.Inc(MetricStorageFailure)
		s.logger.Warn("session storage clear failed", slog.Any("error", err))
	}
}

// transitionLocked publishes next and notifies listeners when it differs
// from the current session.
func (s *Store) transitionLocked(next Session) {
	prev := s.current.Load()
	if prev.Status == next.Status && prev.User == next.User && prev.ExpiresAt.Equal(next.ExpiresAt) {
		return
	}
	s.current.Store(&next)
	for _, l := range *s.listeners.Load() {
		l.fn(next)
	}
}

func (s *Store) armLocked(credential string, expiresAt time.Time) {
	if s.closed {
		return
	}
	d := expiresAt.Sub(s.now())
	if d < 0 {
		d = 0
	}
	s.disarm = s.afterFunc(d, func() { s.expire(credential) })
}

func (s *Store) disarmLocked() {
	if s.disarm != nil {
		s.disarm()
		s.disarm = nil
	}
}

// expire runs from the expiry timer. A timer left over from a replaced
// credential does nothing.
func (s *Store) expire(credential string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.credential == "" || s.credential != credential {
		return
	}
	s.disarm = nil
	_ = s.terminateLocked(context.Background(), AuditExpired, ReasonExpired)
}

func (s *Store) invalidateCaches() {
	for _, inv := range s.invalidators {
		inv.InvalidateAll()
	}
}

func (s *Store) recordBootstrap(ctx context.Context, sess Session, reason string) {
	s.metrics.Inc(MetricBootstrap)
	s.emitAudit(ctx, AuditEvent{
		Type:     AuditBootstrap,
		Username: sess.User.Username,
		Role:     sess.User.Role,
		Reason:   reason,
		Success:  reason == "",
		Metadata: map[string]string{"status": sess.Status.String()},
	})
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrExpiredCredential):
		return "expired"
	case errors.Is(err, ErrMalformedCredential):
		return "malformed"
	default:
		return "unknown"
	}
}
