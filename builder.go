package goSession

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/storage"
	"github.com/MrEthical07/goSession/transport"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a [Client]. A Builder can be built once.
type Builder struct {
	config Config

	storage storage.Storage
	redis   redis.UniversalClient
	base    http.RoundTripper

	navigator    transport.Navigator
	notifier     transport.Notifier
	auditSink    AuditSink
	logger       *slog.Logger
	invalidators []CacheInvalidator

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStorage supplies the storage backend, overriding Config.Storage.
func (b *Builder) WithStorage(st storage.Storage) *Builder {
	b.storage = st
	return b
}

// WithRedis persists the credential in Redis through client. The caller
// keeps ownership of client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithBaseTransport sets the transport under the session layers. The
// default is [http.DefaultTransport].
func (b *Builder) WithBaseTransport(rt http.RoundTripper) *Builder {
	b.base = rt
	return b
}

// WithNavigator sets the port invoked after a forced logout.
func (b *Builder) WithNavigator(n transport.Navigator) *Builder {
	b.navigator = n
	return b
}

// WithNotifier sets the port that surfaces the forced-logout notice.
func (b *Builder) WithNotifier(n transport.Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink sets where audit events go when Config.Audit is enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. The default is [slog.Default].
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithCacheInvalidator registers another request-layer cache to drop on
// every identity change. The client's own response cache is always
// registered.
func (b *Builder) WithCacheInvalidator(inv CacheInvalidator) *Builder {
	if inv != nil {
		b.invalidators = append(b.invalidators, inv)
	}
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the termination latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the client. The transport is
// assembled before the store exists; recovery resolves the store only when
// a response fails.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		cfg:    cfg,
		logger: logger,
	}

	st, err := b.resolveStorage(cfg, c)
	if err != nil {
		return nil, err
	}
	c.storage = st
	c.metrics = NewMetrics(cfg.Metrics)
	observer := transportObserver{metrics: c.metrics}

	// -------- TRANSPORT --------
	var rt http.RoundTripper = b.base
	if rt == nil {
		rt = http.DefaultTransport
	}
	if cfg.HTTP.CacheEnabled {
		c.cache = transport.NewCache(rt, cfg.HTTP.CacheTTL, observer)
		rt = c.cache
	}
	rt = transport.NewRecovery(rt, c.terminator, transport.RecoveryOptions{
		Classifier:   transport.NewClassifier(cfg.Recovery.AuthMarkers),
		Navigator:    b.navigator,
		Notifier:     b.notifier,
		Observer:     observer,
		Logger:       logger,
		LoginPath:    cfg.Routes.LoginPath,
		Notice:       cfg.Recovery.Notice,
		MaxBodyBytes: cfg.Recovery.MaxBodyBytes,
	})
	c.transport = transport.NewAuthenticator(rt, st, observer, logger)
	c.http = &http.Client{
		Transport: c.transport,
		Timeout:   cfg.HTTP.Timeout,
	}

	// -------- SESSION STORE --------
	c.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	store := NewStore(st)
	store.logger = logger
	store.metrics = c.metrics
	store.audit = c.audit
	store.invalidators = append(store.invalidators, b.invalidators...)
	if c.cache != nil {
		store.invalidators = append(store.invalidators, c.cache)
	}
	c.store = store
	c.bound.Store(store)
	c.boot = NewBootstrapper(store, logger)

	b.built = true
	return c, nil
}

func (b *Builder) resolveStorage(cfg Config, c *Client) (storage.Storage, error) {
	if b.storage != nil {
		return b.storage, nil
	}
	if b.redis != nil {
		return storage.NewRedis(b.redis, cfg.Storage.RedisPrefix, cfg.Storage.Key), nil
	}

	switch cfg.Storage.Backend {
	case BackendFile:
		return storage.NewFile(cfg.Storage.FilePath), nil
	case BackendRedis:
		if cfg.Storage.RedisAddr == "" {
			return nil, errors.New("redis backend requires WithRedis or Storage RedisAddr")
		}
		client := redis.NewClient(&redis.Options{Addr: cfg.Storage.RedisAddr})
		c.closers = append(c.closers, client.Close)
		return storage.NewRedis(client, cfg.Storage.RedisPrefix, cfg.Storage.Key), nil
	default:
		return storage.NewMemory(), nil
	}
}
