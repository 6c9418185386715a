// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"

	"atelier/pkg/domain"
	"atelier/pkg/platform/strings"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Event sinks.
const (
	SinkLog   = "log"
	SinkKafka = "kafka"
	SinkRedis = "redis"
)

// Config is the full service configuration.
type Config struct {
	Server   Server
	Registry RegistryConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Log      LogConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"ATELIER_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"ATELIER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"ATELIER_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"ATELIER_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// RegistryConfig selects the state backend and event sinks.
type RegistryConfig struct {
	// Admin is the deployer identity installed on first start.
	Admin           domain.Address `env:"ATELIER_ADMIN,required"`
	Store           string         `env:"ATELIER_STORE" envDefault:"memory"`
	OwnerIndexLimit int            `env:"ATELIER_OWNER_INDEX_LIMIT" envDefault:"0"`
	Sinks           []string       `env:"ATELIER_SINKS" envDefault:"log" envSeparator:","`
	SinkFailures    int            `env:"ATELIER_SINK_BREAKER_FAILURES" envDefault:"5"`
	SinkCooldown    time.Duration  `env:"ATELIER_SINK_BREAKER_COOLDOWN" envDefault:"30s"`
}

// HasSink reports whether name is among the configured sinks.
func (c RegistryConfig) HasSink(name string) bool {
	return slices.Contains(c.Sinks, name)
}

// PostgresConfig holds connection pool settings.
type PostgresConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// RedisConfig holds connection pool settings. An empty URL disables Redis.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
	Stream       string        `env:"REDIS_STREAM" envDefault:"atelier.registry.events"`
	StreamMaxLen int64         `env:"REDIS_STREAM_MAXLEN" envDefault:"100000"`
}

// KafkaConfig configures the event topic producer.
type KafkaConfig struct {
	Brokers           string `env:"KAFKA_BROKERS"`
	Topic             string `env:"KAFKA_TOPIC" envDefault:"atelier.registry.events"`
	CreateTopic       bool   `env:"KAFKA_CREATE_TOPIC" envDefault:"false"`
	Partitions        int32  `env:"KAFKA_TOPIC_PARTITIONS" envDefault:"3"`
	ReplicationFactor int16  `env:"KAFKA_TOPIC_REPLICATION" envDefault:"1"`
}

// AuthConfig configures caller token validation.
type AuthConfig struct {
	SigningKey string        `env:"CALLER_TOKEN_KEY" envDefault:"dev-secret-key-change-in-production"`
	Issuer     string        `env:"CALLER_TOKEN_ISSUER" envDefault:"atelier"`
	Audience   string        `env:"CALLER_TOKEN_AUDIENCE" envDefault:"atelier-registry"`
	TTL        time.Duration `env:"CALLER_TOKEN_TTL" envDefault:"1h"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// FromEnv builds the service config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.Registry.Sinks = strings.DedupeAndTrim(cfg.Registry.Sinks)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements the env tags cannot express.
func (c Config) Validate() error {
	if c.Registry.Admin.IsZero() {
		return fmt.Errorf("ATELIER_ADMIN must not be the null address")
	}
	switch c.Registry.Store {
	case StoreMemory:
	case StorePostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when ATELIER_STORE=postgres")
		}
	default:
		return fmt.Errorf("unknown ATELIER_STORE %q", c.Registry.Store)
	}
	if c.Registry.OwnerIndexLimit < 0 {
		return fmt.Errorf("ATELIER_OWNER_INDEX_LIMIT must not be negative")
	}
	for _, sink := range c.Registry.Sinks {
		switch sink {
		case SinkLog:
		case SinkKafka:
			if c.Kafka.Brokers == "" {
				return fmt.Errorf("KAFKA_BROKERS is required for the kafka sink")
			}
		case SinkRedis:
			if c.Redis.URL == "" {
				return fmt.Errorf("REDIS_URL is required for the redis sink")
			}
		default:
			return fmt.Errorf("unknown event sink %q", sink)
		}
	}
	return nil
}
