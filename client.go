package goSession

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/storage"
	"github.com/MrEthical07/goSession/transport"
)

// Client is the session core of one process: the store, its bootstrapper,
// and an HTTP client that authenticates requests and recovers from
// server-declared session failures.
type Client struct {
	cfg    Config
	logger *slog.Logger

	store *Store
	bound atomic.Pointer[Store]
	boot  *Bootstrapper

	storage   storage.Storage
	cache     *transport.Cache
	transport http.RoundTripper
	http      *http.Client

	metrics *Metrics
	audit   *audit.Dispatcher

	closers   []func() error
	closeOnce sync.Once
	closed    atomic.Bool
}

// terminator is resolved by the recovery layer at the moment of failure.
func (c *Client) terminator() transport.Terminator {
	if s := c.bound.Load(); s != nil {
		return s
	}
	return nil
}

// Store returns the process-wide session store.
func (c *Client) Store() *Store {
	return c.store
}

// Bootstrapper returns the one-shot initializer bound to Store.
func (c *Client) Bootstrapper() *Bootstrapper {
	return c.boot
}

// Bootstrap runs the one-shot bootstrapper. See [Bootstrapper.Run].
func (c *Client) Bootstrap(ctx context.Context) (Session, error) {
	if c.closed.Load() {
		return unauthenticated, ErrClientClosed
	}
	return c.boot.Run(ctx)
}

// HTTPClient returns the authenticated client. Its errors match
// [ErrSessionInvalidated] when recovery forced a logout.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Transport returns the authenticated round tripper.
func (c *Client) Transport() http.RoundTripper {
	return c.transport
}

// Storage returns the persisted credential storage.
func (c *Client) Storage() storage.Storage {
	return c.storage
}

// Config returns a copy of the configuration the client was built with.
func (c *Client) Config() Config {
	return cloneConfig(c.cfg)
}

// NewRequest builds a request for path resolved against HTTP.BaseURL.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	target := path
	if c.cfg.HTTP.BaseURL != "" {
		base, err := url.Parse(c.cfg.HTTP.BaseURL)
		if err != nil {
			return nil, err
		}
		ref, err := url.Parse(path)
		if err != nil {
			return nil, err
		}
		target = base.ResolveReference(ref).String()
	}
	return http.NewRequestWithContext(ctx, method, target, body)
}

// Do sends req through the authenticated client.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	return c.http.Do(req)
}

// Metrics returns the live counters.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// MetricsSnapshot returns a point-in-time copy of Metrics.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// AuditDropped reports how many audit events were dropped.
func (c *Client) AuditDropped() uint64 {
	return c.audit.Dropped()
}

// Close stops timers, flushes audit events and releases owned connections.
// Persisted storage is left as is so the next process can resume the session.
func (c *Client) Close() error {
	var errs []error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.store.Close()
		c.audit.Close()
		c.http.CloseIdleConnections()
		for _, closeFn := range c.closers {
			if err := closeFn(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
