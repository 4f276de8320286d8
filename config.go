package goSession

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/storage"
	"github.com/MrEthical07/goSession/transport"
)

// Config is the full session client configuration. Build it with
// [DefaultConfig] or [ConfigFromEnv] and adjust fields before passing it to
// [Builder.WithConfig].
type Config struct {
	Storage  StorageConfig
	Routes   RoutesConfig
	Recovery RecoveryConfig
	HTTP     HTTPConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Logging  LoggingConfig
}

/*
====================================
STORAGE CONFIG
====================================
*/

// Storage backends selectable by [StorageConfig.Backend].
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// StorageConfig selects where the credential is persisted. It is ignored
// when [Builder.WithStorage] supplies a backend.
type StorageConfig struct {
	Backend     string // "memory" (default), "file" or "redis"
	Key         string
	FilePath    string
	RedisAddr   string
	RedisPrefix string
}

/*
====================================
ROUTES CONFIG
====================================
*/

// RoutesConfig describes navigation targets used by the guards and the
// recovery policy.
type RoutesConfig struct {
	LoginPath string
	// EntryPath is where the role entry resolver is mounted. Public-only
	// pages send authenticated visitors there.
	EntryPath   string
	ReturnParam string
	// Destinations maps a role to its post-login path. Lookup ignores case;
	// an unknown role has no destination and fails closed to LoginPath.
	Destinations map[string]string
	// DeferredRetryAfter is advertised while the session is initializing.
	DeferredRetryAfter time.Duration
}

// Destination returns the post-login path for role.
func (r RoutesConfig) Destination(role string) (string, bool) {
	role = strings.TrimSpace(role)
	if role == "" {
		return "", false
	}
	if path, ok := r.Destinations[role]; ok {
		return path, true
	}
	for k, path := range r.Destinations {
		if strings.EqualFold(k, role) {
			return path, true
		}
	}
	return "", false
}

/*
====================================
RECOVERY CONFIG
====================================
*/

// RecoveryConfig tunes how failed responses are classified. AuthMarkers is
// configuration, not protocol: servers change their wording.
type RecoveryConfig struct {
	AuthMarkers  []string
	Notice       string
	MaxBodyBytes int64
}

/*
====================================
HTTP CONFIG
====================================
*/

// HTTPConfig configures the authenticated HTTP client.
type HTTPConfig struct {
	BaseURL      string
	Timeout      time.Duration
	CacheEnabled bool
	CacheTTL     time.Duration
}

/*
====================================
AUDIT / METRICS / LOGGING
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// LoggingConfig is used by [NewLogger].
type LoggingConfig struct {
	Level  string // debug|info|warn|error
	Format string // json (default) or text
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			Backend:     BackendMemory,
			Key:         storage.DefaultKey,
			FilePath:    "showcase-session.token",
			RedisPrefix: "showcase",
		},
		Routes: RoutesConfig{
			LoginPath:   "/login",
			EntryPath:   "/",
			ReturnParam: "from",
			Destinations: map[string]string{
				"admin":   "/admin",
				"mentor":  "/mentor",
				"student": "/student",
			},
			DeferredRetryAfter: time.Second,
		},
		Recovery: RecoveryConfig{
			AuthMarkers:  append([]string(nil), transport.DefaultAuthMarkers...),
			Notice:       transport.DefaultNotice,
			MaxBodyBytes: transport.DefaultMaxBodyBytes,
		},
		HTTP: HTTPConfig{
			BaseURL:      "http://localhost:8080",
			Timeout:      15 * time.Second,
			CacheEnabled: true,
			CacheTTL:     transport.DefaultCacheTTL,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Recovery.AuthMarkers = append([]string(nil), cfg.Recovery.AuthMarkers...)
	if cfg.Routes.Destinations != nil {
		out.Routes.Destinations = make(map[string]string, len(cfg.Routes.Destinations))
		for k, v := range cfg.Routes.Destinations {
			out.Routes.Destinations[k] = v
		}
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	// Storage
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendFile:
		if strings.TrimSpace(c.Storage.FilePath) == "" {
			return errors.New("Storage FilePath required for file backend")
		}
	case BackendRedis:
		if strings.TrimSpace(c.Storage.Key) == "" {
			return errors.New("Storage Key required for redis backend")
		}
	default:
		return fmt.Errorf("unsupported Storage Backend %q", c.Storage.Backend)
	}

	// Routes
	if !isLocalPath(c.Routes.LoginPath) {
		return errors.New("Routes LoginPath must be a local absolute path")
	}
	if !isLocalPath(c.Routes.EntryPath) {
		return errors.New("Routes EntryPath must be a local absolute path")
	}
	if c.Routes.EntryPath == c.Routes.LoginPath {
		return errors.New("Routes EntryPath must differ from LoginPath")
	}
	if strings.TrimSpace(c.Routes.ReturnParam) == "" {
		return errors.New("Routes ReturnParam must not be empty")
	}
	for role, path := range c.Routes.Destinations {
		if strings.TrimSpace(role) == "" {
			return errors.New("Routes Destinations must not contain an empty role")
		}
		if !isLocalPath(path) {
			return fmt.Errorf("Routes destination for %q must be a local absolute path", role)
		}
	}
	if c.Routes.DeferredRetryAfter < 0 {
		return errors.New("Routes DeferredRetryAfter must be >= 0")
	}

	// Recovery
	if c.Recovery.MaxBodyBytes <= 0 {
		return errors.New("Recovery MaxBodyBytes must be > 0")
	}

	// HTTP
	if c.HTTP.BaseURL != "" {
		u, err := url.Parse(c.HTTP.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("HTTP BaseURL must be an absolute URL")
		}
	}
	if c.HTTP.Timeout < 0 {
		return errors.New("HTTP Timeout must be >= 0")
	}
	if c.HTTP.CacheEnabled && c.HTTP.CacheTTL <= 0 {
		return errors.New("HTTP CacheTTL must be > 0 when CacheEnabled is true")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Logging
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("unsupported Logging Format %q", c.Logging.Format)
	}

	return nil
}

func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.Contains(p, "\\")
}
