package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port            string        `env:"PORT,             default=8080"`
	Env             string        `env:"ENV,              default=development"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`

	Auth      AuthConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	Analytics AnalyticsConfig
	Events    EventsConfig
}

type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET, required"`
	TokenTTL  time.Duration `env:"JWT_TTL,    default=24h"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017/?replicaSet=rs0"`
	Database string `env:"MONGO_DB,  default=puller_dispatch"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type AnalyticsConfig struct {
	// CacheTTL of zero disables the analytics cache.
	CacheTTL time.Duration `env:"ANALYTICS_CACHE_TTL, default=2s"`
}

type EventsConfig struct {
	Workers int `env:"EVENT_WORKERS, default=4"`
}

// Development reports whether the process runs with developer defaults
// (pretty logs).
func (c *Config) Development() bool {
	return c.Env == "development"
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.Analytics.CacheTTL < 0 {
		return nil, fmt.Errorf("config: ANALYTICS_CACHE_TTL must not be negative")
	}
	return &cfg, nil
}
