package goSession

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// ConfigFromEnv loads Config from SESSION_* environment variables, after
// loading the nearest .env file found walking up from the working
// directory. Unset variables keep their [DefaultConfig] values.
func ConfigFromEnv() Config {
	loadDotEnv()

	def := DefaultConfig()
	cfg := Config{
		Storage: StorageConfig{
			Backend:     env.GetString("SESSION_STORAGE_BACKEND", def.Storage.Backend),
			Key:         env.GetString("SESSION_STORAGE_KEY", def.Storage.Key),
			FilePath:    env.GetString("SESSION_STORAGE_FILE", def.Storage.FilePath),
			RedisAddr:   env.GetString("SESSION_REDIS_ADDR", def.Storage.RedisAddr),
			RedisPrefix: env.GetString("SESSION_REDIS_PREFIX", def.Storage.RedisPrefix),
		},
		Routes: RoutesConfig{
			LoginPath:          env.GetString("SESSION_LOGIN_PATH", def.Routes.LoginPath),
			EntryPath:          env.GetString("SESSION_ENTRY_PATH", def.Routes.EntryPath),
			ReturnParam:        env.GetString("SESSION_RETURN_PARAM", def.Routes.ReturnParam),
			Destinations:       def.Routes.Destinations,
			DeferredRetryAfter: env.GetDuration("SESSION_DEFERRED_RETRY_SECONDS", 1, time.Second),
		},
		Recovery: RecoveryConfig{
			AuthMarkers:  def.Recovery.AuthMarkers,
			Notice:       env.GetString("SESSION_NOTICE", def.Recovery.Notice),
			MaxBodyBytes: int64(env.GetInt("SESSION_RECOVERY_MAX_BODY_BYTES", int(def.Recovery.MaxBodyBytes))),
		},
		HTTP: HTTPConfig{
			BaseURL:      env.GetString("SESSION_API_BASE_URL", def.HTTP.BaseURL),
			Timeout:      env.GetDuration("SESSION_HTTP_TIMEOUT_SECONDS", 15, time.Second),
			CacheEnabled: env.GetBool("SESSION_CACHE_ENABLED", def.HTTP.CacheEnabled),
			CacheTTL:     env.GetDuration("SESSION_CACHE_TTL_SECONDS", 30, time.Second),
		},
		Audit: AuditConfig{
			Enabled:    env.GetBool("SESSION_AUDIT_ENABLED", def.Audit.Enabled),
			BufferSize: env.GetInt("SESSION_AUDIT_BUFFER_SIZE", def.Audit.BufferSize),
			DropIfFull: env.GetBool("SESSION_AUDIT_DROP_IF_FULL", def.Audit.DropIfFull),
		},
		Metrics: MetricsConfig{
			Enabled:                 env.GetBool("SESSION_METRICS_ENABLED", def.Metrics.Enabled),
			EnableLatencyHistograms: env.GetBool("SESSION_METRICS_LATENCY", def.Metrics.EnableLatencyHistograms),
		},
		Logging: LoggingConfig{
			Level:  env.GetString("SESSION_LOG_LEVEL", def.Logging.Level),
			Format: env.GetString("SESSION_LOG_FORMAT", def.Logging.Format),
		},
	}

	if raw := env.GetString("SESSION_ROLE_DESTINATIONS", ""); raw != "" {
		cfg.Routes.Destinations = parsePairs(raw)
	}
	if raw := env.GetString("SESSION_AUTH_MARKERS", ""); raw != "" {
		cfg.Recovery.AuthMarkers = splitList(raw)
	}

	return cfg
}

// parsePairs reads "role=/path,role2=/path2".
func parsePairs(raw string) map[string]string {
	out := make(map[string]string)
	for _, item := range splitList(raw) {
		role, path, ok := strings.Cut(item, "=")
		if !ok {
			continue
		}
		role, path = strings.TrimSpace(role), strings.TrimSpace(path)
		if role != "" {
			out[role] = path
		}
	}
	return out
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// loadDotEnv loads the first .env found from the working directory upward.
func loadDotEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
