package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Storage drivers.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Refund providers.
const (
	RefundProviderStub = "stub"
	RefundProviderHTTP = "http"
)

// Config holds all configuration for the inventory service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8007"`

	// Storage backend: postgres or memory
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"ecommerce"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"ecommerce_secret"`
	PostgresDB   string `env:"INVENTORY_DB_NAME" envDefault:"inventory_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Redis (job locks and event idempotency)
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"true"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Reservations
	ReservationTTLMinutes    int `env:"RESERVATION_TTL_MINUTES" envDefault:"15"`
	ReservationRetentionDays int `env:"RESERVATION_RETENTION_DAYS" envDefault:"30"`
	SweepIntervalSeconds     int `env:"SWEEP_INTERVAL_SECONDS" envDefault:"60"`
	SweepBatchSize           int `env:"SWEEP_BATCH_SIZE" envDefault:"500"`

	// Cancellation statistics default window
	CancellationStatsWindowDays int `env:"CANCELLATION_STATS_WINDOW_DAYS" envDefault:"30"`

	// Auth
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`

	// Refunds
	RefundProvider          string  `env:"REFUND_PROVIDER" envDefault:"stub"`
	PaymentServiceURL       string  `env:"PAYMENT_SERVICE_URL" envDefault:"http://localhost:8005"`
	RefundBreakerTimeoutSec int     `env:"REFUND_BREAKER_TIMEOUT_SECONDS" envDefault:"30"`
	RefundBreakerRatio      float64 `env:"REFUND_BREAKER_FAILURE_RATIO" envDefault:"0.5"`
	RefundBreakerMinReqs    uint32  `env:"REFUND_BREAKER_MIN_REQUESTS" envDefault:"5"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StorageDriverPostgres, StorageDriverMemory, c.StorageDriver)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	if c.ReservationTTLMinutes <= 0 {
		return fmt.Errorf("RESERVATION_TTL_MINUTES must be > 0, got %d", c.ReservationTTLMinutes)
	}
	if c.ReservationRetentionDays <= 0 {
		return fmt.Errorf("RESERVATION_RETENTION_DAYS must be > 0, got %d", c.ReservationRetentionDays)
	}
	if c.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL_SECONDS must be > 0, got %d", c.SweepIntervalSeconds)
	}
	if c.SweepBatchSize <= 0 {
		return fmt.Errorf("SWEEP_BATCH_SIZE must be > 0, got %d", c.SweepBatchSize)
	}
	if c.CancellationStatsWindowDays <= 0 {
		return fmt.Errorf("CANCELLATION_STATS_WINDOW_DAYS must be > 0, got %d", c.CancellationStatsWindowDays)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.RefundProvider {
	case RefundProviderStub:
	case RefundProviderHTTP:
		if c.PaymentServiceURL == "" {
			return fmt.Errorf("PAYMENT_SERVICE_URL is required when REFUND_PROVIDER=http")
		}
	default:
		return fmt.Errorf("REFUND_PROVIDER must be %q or %q, got %q", RefundProviderStub, RefundProviderHTTP, c.RefundProvider)
	}
	if c.RefundBreakerRatio <= 0 || c.RefundBreakerRatio > 1.0 {
		return fmt.Errorf("REFUND_BREAKER_FAILURE_RATIO must be in (0, 1], got %f", c.RefundBreakerRatio)
	}
	return nil
}

// ReservationTTL returns the default hold duration.
func (c *Config) ReservationTTL() time.Duration {
	return time.Duration(c.ReservationTTLMinutes) * time.Minute
}

// ReservationRetention returns how long resolved reservations are kept.
func (c *Config) ReservationRetention() time.Duration {
	return time.Duration(c.ReservationRetentionDays) * 24 * time.Hour
}

// SweepInterval returns the expiry sweep period.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// CancellationStatsWindow returns the default trailing window for cancellation statistics.
func (c *Config) CancellationStatsWindow() time.Duration {
	return time.Duration(c.CancellationStatsWindowDays) * 24 * time.Hour
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}
