package transport

import (
	"context"
)

// CredentialSource returns the persisted credential. storage.Storage
// satisfies it.
type CredentialSource interface {
	Load(ctx context.Context) (string, error)
}

// Terminator forces the session carried by credential to end. It reports
// whether this call performed the termination; a session that is already
// gone, or that has been replaced by a newer credential, is left alone.
type Terminator interface {
	ForceLogout(ctx context.Context, credential, reason string) (bool, error)
}

// Navigator is the navigation port invoked after a forced logout.
type Navigator interface {
	Navigate(ctx context.Context, path string)
}

// NavigatorFunc adapts a function to [Navigator].
type NavigatorFunc func(ctx context.Context, path string)

// Navigate calls f.
func (f NavigatorFunc) Navigate(ctx context.Context, path string) { f(ctx, path) }

// Notice is the user-facing message surfaced once per forced logout.
type Notice struct {
	Message    string
	Reason     string
	StatusCode int
}

// Notifier is the notice port invoked after a forced logout.
type Notifier interface {
	Notify(ctx context.Context, notice Notice)
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(ctx context.Context, notice Notice)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, notice Notice) { f(ctx, notice) }

// Observer receives transport events for metrics.
type Observer interface {
	CredentialAttached(attached bool)
	ResponseClassified(class Class)
	TerminationDeduplicated()
	CacheLookup(hit bool)
}

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) CredentialAttached(bool)  {}
func (NopObserver) ResponseClassified(Class) {}
func (NopObserver) TerminationDeduplicated() {}
func (NopObserver) CacheLookup(bool)         {}

type nopNavigator struct{}

func (nopNavigator) Navigate(context.Context, string) {}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notice) {}

type closeIdler interface {
	CloseIdleConnections()
}

func closeIdle(rt any) {
	if c, ok := rt.(closeIdler); ok {
		c.CloseIdleConnections()
	}
}
