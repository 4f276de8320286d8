package goSession

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Bootstrapper hydrates a [Store] exactly once per process. Until [Store]
// leaves StatusInitializing, guards defer their decisions.
type Bootstrapper struct {
	store  *Store
	logger *slog.Logger

	once   sync.Once
	done   chan struct{}
	result Session
	err    error
}

func NewBootstrapper(store *Store, logger *slog.Logger) *Bootstrapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bootstrapper{
		store:  store,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Run initializes the store on the first call and returns that outcome on
// every call. It never panics: any failure, including a panic inside a
// storage backend, degrades to an unauthenticated session so the login path
// stays reachable. The returned error is informational.
func (b *Bootstrapper) Run(ctx context.Context) (Session, error) {
	b.once.Do(func() {
		defer close(b.done)
		defer func() {
			if r := recover(); r != nil {
				b.store.degrade()
				b.result = unauthenticated
				b.err = fmt.Errorf("%w: bootstrap panic: %v", ErrStorageUnavailable, r)
				b.logger.Error("session bootstrap panicked", slog.Any("panic", r))
			}
		}()

		b.result, b.err = b.store.Initialize(ctx)
		if b.err != nil {
			b.logger.Warn("session bootstrap degraded", slog.Any("error", b.err))
			return
		}
		b.logger.Info("session bootstrapped", slog.String("status", b.result.Status.String()))
	})
	<-b.done
	return b.result, b.err
}

// Done is closed once Run has completed.
func (b *Bootstrapper) Done() <-chan struct{} {
	return b.done
}

// Ready reports whether Run has completed.
func (b *Bootstrapper) Ready() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// degrade forces an unauthenticated session after a failed bootstrap.
func (s *Store) degrade() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.Inc(MetricBootstrapDegraded)
	previous := s.credential
	s.disarmLocked()
	s.settleLocked(previous)
}
