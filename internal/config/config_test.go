package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Server: ServerConfig{Port: 8080},
		Store:  StoreConfig{Driver: DriverBadger, Path: "/data/goodbooks", Timeout: 5 * time.Second},
		Auth:   AuthConfig{APIKey: DefaultAPIKey},
		RateLimit: RateLimitConfig{
			Backend:  LimiterFixedWindow,
			Requests: 120,
			Window:   time.Minute,
			Burst:    20,
		},
		Ingest: IngestConfig{Source: DefaultSource, BatchSize: 1000},
	}
}

// clearEnv blanks the variables Load reads so the host environment cannot leak in.
// Viper treats empty variables as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"API_KEY", "DB_NAME", "LOG_LEVEL", "ENV", "REDIS_ADDR", "PORT",
		"GOODBOOKS_AUTH_API_KEY", "GOODBOOKS_STORE_PATH", "GOODBOOKS_STORE_DRIVER",
		"GOODBOOKS_LOG_LEVEL", "GOODBOOKS_APP_ENV", "GOODBOOKS_SERVER_PORT",
		"GOODBOOKS_RATELIMIT_BACKEND", "GOODBOOKS_RATELIMIT_REDIS_ADDR",
	} {
		t.Setenv(name, "")
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", false}, // default api key
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_ProductionNeedsRealKey(t *testing.T) {
	cfg := validConfig()
	cfg.App.Environment = "production"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "development api key")

	cfg.Auth.APIKey = "s3cret"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"DEBUG", true},  // case insensitive
		{"trace", false}, // not supported
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad format", func(c *Config) { c.Logger.Format = "xml" }, "invalid log format"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"bad driver", func(c *Config) { c.Store.Driver = "mongo" }, "invalid store driver"},
		{"empty store path", func(c *Config) { c.Store.Path = "" }, "store path is required"},
		{"empty api key", func(c *Config) { c.Auth.APIKey = "" }, "api key is required"},
		{"bad limiter", func(c *Config) { c.RateLimit.Backend = "leaky" }, "invalid rate limit backend"},
		{"zero window", func(c *Config) { c.RateLimit.Window = 0 }, "must be positive"},
		{"token without burst", func(c *Config) {
			c.RateLimit.Backend = LimiterTokenBucket
			c.RateLimit.Burst = 0
		}, "burst must be positive"},
		{"redis without addr", func(c *Config) { c.RateLimit.Backend = LimiterRedis }, "redis addr is required"},
		{"zero batch", func(c *Config) { c.Ingest.BatchSize = 0 }, "batch size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_LimiterOffIgnoresNumbers(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit = RateLimitConfig{Backend: LimiterOff}
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, DriverBadger, cfg.Store.Driver)
	assert.True(t, filepath.IsAbs(cfg.Store.Path))
	assert.Equal(t, filepath.Join(filepath.Dir(cfg.Store.Path), "search"), cfg.Search.Path)
	assert.Equal(t, DefaultAPIKey, cfg.Auth.APIKey)
	assert.Equal(t, LimiterFixedWindow, cfg.RateLimit.Backend)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 1000, cfg.Ingest.BatchSize)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "goodbooks.yaml")
	content := `
app:
  env: staging
store:
  driver: sqlite
  path: /var/lib/goodbooks.db
ratelimit:
  backend: token
  requests: 10
  window: 1s
  burst: 5
server:
  port: 9000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("GOODBOOKS_SERVER_PORT", "9100")
	t.Setenv("API_KEY", "legacy-key")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.App.Environment)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/var/lib/goodbooks.db", cfg.Store.Path)
	assert.Equal(t, LimiterTokenBucket, cfg.RateLimit.Backend)
	assert.Equal(t, time.Second, cfg.RateLimit.Window)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "legacy-key", cfg.Auth.APIKey)
}

func TestLoad_PrefixedEnvWinsOverLegacy(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_KEY", "legacy-key")
	t.Setenv("GOODBOOKS_AUTH_API_KEY", "new-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "new-key", cfg.Auth.APIKey)
}

func TestLoad_InvalidFails(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOODBOOKS_STORE_DRIVER", "mongo")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestExpandPath_EmptyUsesDefault(t *testing.T) {
	got, err := expandPath("", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/default", got)
}

func TestExpandPath_TildeExpansion(t *testing.T) {
	got, err := expandPath("~/my-data", "")
	require.NoError(t, err)

	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup
	assert.Equal(t, filepath.Join(homeDir, "my-data"), got)
}

func TestExpandPath_RelativePath(t *testing.T) {
	got, err := expandPath("relative/path", "")
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(got))
	assert.Contains(t, got, "relative/path")
}
