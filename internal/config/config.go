// Package config loads service configuration from defaults, an optional YAML file and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable: store.driver is GOODBOOKS_STORE_DRIVER.
const EnvPrefix = "GOODBOOKS"

// Store drivers.
const (
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
)

// Rate limiter backends.
const (
	LimiterFixedWindow = "memory"
	LimiterTokenBucket = "token"
	LimiterRedis       = "redis"
	LimiterOff         = "off"
)

// DefaultAPIKey is the development key; production refuses to start with it.
const DefaultAPIKey = "dev-key"

// Config holds the application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logger    LoggerConfig    `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Search    SearchConfig    `mapstructure:"search"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `mapstructure:"env"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, pretty, or empty to follow the environment
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	// TrustProxy makes the client IP come from X-Forwarded-For / X-Real-IP.
	TrustProxy bool `mapstructure:"trust_proxy"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Driver  string        `mapstructure:"driver"`
	Path    string        `mapstructure:"path"` // directory for badger, file for sqlite
	Timeout time.Duration `mapstructure:"timeout"`
}

// SearchConfig configures the bleve text index used with the badger store.
type SearchConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// AuthConfig holds the shared write key.
type AuthConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// RateLimitConfig configures the per-client request limiter.
type RateLimitConfig struct {
	Backend  string        `mapstructure:"backend"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
	Burst    int           `mapstructure:"burst"` // token bucket only
	Redis    RedisConfig   `mapstructure:"redis"`
}

// RedisConfig locates the shared limiter state.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// IngestConfig holds the CSV loader defaults.
type IngestConfig struct {
	Source    string `mapstructure:"source"`
	BatchSize int    `mapstructure:"batch_size"`
}

// DefaultSource is the goodbooks-10k sample directory.
const DefaultSource = "https://raw.githubusercontent.com/zygmuntz/goodbooks-10k/master/samples"

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "")

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.trust_proxy", false)

	v.SetDefault("store.driver", DriverBadger)
	v.SetDefault("store.path", "./data/goodbooks")
	v.SetDefault("store.timeout", "5s")

	v.SetDefault("search.enabled", true)
	v.SetDefault("search.path", "")

	v.SetDefault("auth.api_key", DefaultAPIKey)

	v.SetDefault("ratelimit.backend", LimiterFixedWindow)
	v.SetDefault("ratelimit.requests", 120)
	v.SetDefault("ratelimit.window", "1m")
	v.SetDefault("ratelimit.burst", 20)
	v.SetDefault("ratelimit.redis.addr", "")
	v.SetDefault("ratelimit.redis.password", "")
	v.SetDefault("ratelimit.redis.db", 0)
	v.SetDefault("ratelimit.redis.prefix", "goodbooks:ratelimit")

	v.SetDefault("ingest.source", DefaultSource)
	v.SetDefault("ingest.batch_size", 1000)
}

// Load reads configuration with precedence environment > file > defaults.
// path may be empty, in which case ./config.yaml is used when present.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Names used by earlier deployments.
	legacy := map[string]string{
		"auth.api_key":         "API_KEY",
		"store.path":           "DB_NAME",
		"log.level":            "LOG_LEVEL",
		"app.env":              "ENV",
		"ratelimit.redis.addr": "REDIS_ADDR",
		"server.port":          "PORT",
	}
	for key, name := range legacy {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, name); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if !slices.Contains([]string{"development", "staging", "production"}, c.App.Environment) {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Logger.Level)) {
		return fmt.Errorf("invalid log level: %q (must be debug, info, warn, or error)", c.Logger.Level)
	}
	if !slices.Contains([]string{"", "json", "pretty"}, c.Logger.Format) {
		return fmt.Errorf("invalid log format: %q (must be json or pretty)", c.Logger.Format)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Store.Driver {
	case DriverBadger, DriverSQLite:
	default:
		return fmt.Errorf("invalid store driver: %q (must be badger or sqlite)", c.Store.Driver)
	}
	if c.Store.Path == "" {
		return errors.New("store path is required")
	}
	if c.Store.Timeout < 0 {
		return errors.New("store timeout cannot be negative")
	}

	if c.Auth.APIKey == "" {
		return errors.New("api key is required")
	}
	if c.App.Environment == "production" && c.Auth.APIKey == DefaultAPIKey {
		return errors.New("the development api key cannot be used in production")
	}

	switch c.RateLimit.Backend {
	case LimiterOff:
	case LimiterFixedWindow, LimiterTokenBucket, LimiterRedis:
		if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
			return errors.New("rate limit requests and window must be positive")
		}
		if c.RateLimit.Backend == LimiterTokenBucket && c.RateLimit.Burst <= 0 {
			return errors.New("rate limit burst must be positive")
		}
		if c.RateLimit.Backend == LimiterRedis && c.RateLimit.Redis.Addr == "" {
			return errors.New("rate limit redis addr is required")
		}
	default:
		return fmt.Errorf("invalid rate limit backend: %q (must be memory, token, redis, or off)", c.RateLimit.Backend)
	}

	if c.Ingest.BatchSize <= 0 {
		return errors.New("ingest batch size must be positive")
	}
	return nil
}

// expandPaths makes the store and search paths absolute. The search index defaults to a
// sibling of the store.
func (c *Config) expandPaths() error {
	storePath, err := expandPath(c.Store.Path, "")
	if err != nil {
		return fmt.Errorf("invalid store path: %w", err)
	}
	c.Store.Path = storePath

	defaultSearch := ""
	if storePath != "" {
		defaultSearch = filepath.Join(filepath.Dir(storePath), "search")
	}
	searchPath, err := expandPath(c.Search.Path, defaultSearch)
	if err != nil {
		return fmt.Errorf("invalid search path: %w", err)
	}
	c.Search.Path = searchPath
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}
