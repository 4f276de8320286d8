package goSession

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg Config)
	}{
		{
			name:    "defaults",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg Config) {
				def := DefaultConfig()
				assert.Equal(t, def.Storage, cfg.Storage)
				assert.Equal(t, def.Routes, cfg.Routes)
				assert.Equal(t, def.HTTP, cfg.HTTP)
				assert.Equal(t, def.Recovery.AuthMarkers, cfg.Recovery.AuthMarkers)
				assert.NoError(t, cfg.Validate())
			},
		},
		{
			name: "storage and http",
			envVars: map[string]string{
				"SESSION_STORAGE_BACKEND":      "redis",
				"SESSION_REDIS_ADDR":           "127.0.0.1:6390",
				"SESSION_REDIS_PREFIX":         "demo",
				"SESSION_API_BASE_URL":         "https://api.showcase.example",
				"SESSION_HTTP_TIMEOUT_SECONDS": "3",
				"SESSION_CACHE_ENABLED":        "false",
			},
			validate: func(t *testing.T, cfg Config) {
				assert.Equal(t, BackendRedis, cfg.Storage.Backend)
				assert.Equal(t, "127.0.0.1:6390", cfg.Storage.RedisAddr)
				assert.Equal(t, "demo", cfg.Storage.RedisPrefix)
				assert.Equal(t, "https://api.showcase.example", cfg.HTTP.BaseURL)
				assert.Equal(t, 3*time.Second, cfg.HTTP.Timeout)
				assert.False(t, cfg.HTTP.CacheEnabled)
			},
		},
		{
			name: "routes and markers",
			envVars: map[string]string{
				"SESSION_LOGIN_PATH":        "/signin",
				"SESSION_ROLE_DESTINATIONS": "admin=/panel, reviewer = /review ,broken",
				"SESSION_AUTH_MARKERS":      "token, revoked ,",
			},
			validate: func(t *testing.T, cfg Config) {
				assert.Equal(t, "/signin", cfg.Routes.LoginPath)
				assert.Equal(t, map[string]string{"admin": "/panel", "reviewer": "/review"}, cfg.Routes.Destinations)
				assert.Equal(t, []string{"token", "revoked"}, cfg.Recovery.AuthMarkers)
			},
		},
		{
			name: "audit and logging",
			envVars: map[string]string{
				"SESSION_AUDIT_ENABLED":     "true",
				"SESSION_AUDIT_BUFFER_SIZE": "16",
				"SESSION_LOG_LEVEL":         "debug",
				"SESSION_LOG_FORMAT":        "text",
			},
			validate: func(t *testing.T, cfg Config) {
				assert.True(t, cfg.Audit.Enabled)
				assert.Equal(t, 16, cfg.Audit.BufferSize)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "text", cfg.Logging.Format)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}
			tt.validate(t, ConfigFromEnv())
		})
	}
}

func TestConfigFromEnvLoadsDotEnv(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("SESSION_LOGIN_PATH=/from-dotenv\n"), 0o600))
	t.Chdir(nested)
	// godotenv never overrides the real environment; register cleanup for
	// the variable it sets.
	t.Setenv("SESSION_LOGIN_PATH", "")
	require.NoError(t, os.Unsetenv("SESSION_LOGIN_PATH"))

	cfg := ConfigFromEnv()
	assert.Equal(t, "/from-dotenv", cfg.Routes.LoginPath)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LoggingConfig{Level: "warn", Format: "json"})
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"k":"v"`)
}
