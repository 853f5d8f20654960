package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Store    StoreConfig    `mapstructure:"store"`
	Cache    CacheConfig    `mapstructure:"cache"`
	App      AppConfig      `mapstructure:"app"`
	Clicks   ClicksConfig   `mapstructure:"clicks"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Type     string         `mapstructure:"type"` // memory, sqlite, postgres
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type SQLiteConfig struct {
	Path   string `mapstructure:"path"`
	Driver string `mapstructure:"driver"` // sqlite3 (cgo) or sqlite (pure Go)
}

type PostgresConfig struct {
	URL             string        `mapstructure:"url"`
	Driver          string        `mapstructure:"driver"` // postgres (lib/pq) or pgx
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// StoreConfig bounds every call into the record store.
type StoreConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Breaker BreakerConfig `mapstructure:"breaker"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

type BreakerConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
	OpenTimeout         time.Duration `mapstructure:"open_timeout"`
	HalfOpenRequests    uint32        `mapstructure:"half_open_requests"`
}

type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type AppConfig struct {
	BaseURL             string           `mapstructure:"base_url"`
	ShortCodeLength     int              `mapstructure:"short_code_length"`
	MaxGenerateAttempts int              `mapstructure:"max_generate_attempts"`
	AllowAnonymous      bool             `mapstructure:"allow_anonymous"`
	CustomSlug          CustomSlugConfig `mapstructure:"custom_slug"`
	List                ListConfig       `mapstructure:"list"`
}

type CustomSlugConfig struct {
	MinLength int `mapstructure:"min_length"`
	MaxLength int `mapstructure:"max_length"`
}

type ListConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// ClicksConfig tunes the asynchronous click increments issued by redirects.
type ClicksConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Retry   RetryConfig   `mapstructure:"retry"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

type MetricsConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Path           string `mapstructure:"path"`
	Namespace      string `mapstructure:"namespace"`
	Subsystem      string `mapstructure:"subsystem"`
	CollectRuntime bool   `mapstructure:"collect_runtime"`
}

func Load() (*Config, error) {
	// .env is optional; real environment variables always win.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/shortener/")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("database.type", "memory")
	v.SetDefault("database.sqlite.path", "./data/shortener.db")
	v.SetDefault("database.sqlite.driver", "sqlite3")
	v.SetDefault("database.postgres.url", "")
	v.SetDefault("database.postgres.driver", "postgres")
	v.SetDefault("database.postgres.max_open_conns", 10)
	v.SetDefault("database.postgres.max_idle_conns", 2)
	v.SetDefault("database.postgres.conn_max_lifetime", "1h")

	v.SetDefault("store.timeout", "2s")
	v.SetDefault("store.retry.max_attempts", 3)
	v.SetDefault("store.retry.initial_interval", "50ms")
	v.SetDefault("store.retry.max_interval", "500ms")
	v.SetDefault("store.breaker.enabled", true)
	v.SetDefault("store.breaker.consecutive_failures", 5)
	v.SetDefault("store.breaker.open_timeout", "10s")
	v.SetDefault("store.breaker.half_open_requests", 1)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	v.SetDefault("cache.ttl", "10m")

	v.SetDefault("app.base_url", "http://localhost:8080")
	v.SetDefault("app.short_code_length", 7)
	v.SetDefault("app.max_generate_attempts", 5)
	v.SetDefault("app.allow_anonymous", true)
	v.SetDefault("app.custom_slug.min_length", 3)
	v.SetDefault("app.custom_slug.max_length", 32)
	v.SetDefault("app.list.default_limit", 20)
	v.SetDefault("app.list.max_limit", 100)

	v.SetDefault("clicks.timeout", "5s")
	v.SetDefault("clicks.retry.max_attempts", 3)
	v.SetDefault("clicks.retry.initial_interval", "100ms")
	v.SetDefault("clicks.retry.max_interval", "1s")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "shortener")
	v.SetDefault("metrics.subsystem", "")
	v.SetDefault("metrics.collect_runtime", true)
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.App.ShortCodeLength < 6 {
		return fmt.Errorf("app.short_code_length must be at least 6, got %d", c.App.ShortCodeLength)
	}
	if c.App.MaxGenerateAttempts < 1 {
		return fmt.Errorf("app.max_generate_attempts must be positive, got %d", c.App.MaxGenerateAttempts)
	}
	if c.App.CustomSlug.MinLength < 1 || c.App.CustomSlug.MaxLength < c.App.CustomSlug.MinLength {
		return fmt.Errorf("invalid custom slug length bounds [%d, %d]", c.App.CustomSlug.MinLength, c.App.CustomSlug.MaxLength)
	}
	if c.App.List.DefaultLimit < 1 || c.App.List.MaxLimit < c.App.List.DefaultLimit {
		return fmt.Errorf("invalid list limits default=%d max=%d", c.App.List.DefaultLimit, c.App.List.MaxLimit)
	}
	if c.Store.Timeout <= 0 {
		return errors.New("store.timeout must be positive")
	}
	if c.Store.Retry.MaxAttempts < 1 {
		return fmt.Errorf("store.retry.max_attempts must be positive, got %d", c.Store.Retry.MaxAttempts)
	}
	// A click increment gets at least one retry.
	if c.Clicks.Retry.MaxAttempts < 2 {
		return fmt.Errorf("clicks.retry.max_attempts must be at least 2, got %d", c.Clicks.Retry.MaxAttempts)
	}
	if c.Database.Type == "postgres" && c.Database.Postgres.URL == "" {
		return errors.New("database.postgres.url is required for the postgres store")
	}
	return nil
}

func (c *Config) GetDatabaseURL() string {
	switch c.Database.Type {
	case "sqlite":
		return c.Database.SQLite.Path
	case "postgres":
		return c.Database.Postgres.URL
	default:
		return ""
	}
}
