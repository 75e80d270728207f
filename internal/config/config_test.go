package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setEnvs sets multiple env vars for the duration of the test.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8007, cfg.HTTPPort)
	assert.Equal(t, StorageDriverPostgres, cfg.StorageDriver)
	assert.Equal(t, "inventory_db", cfg.PostgresDB)
	assert.Equal(t, 15*time.Minute, cfg.ReservationTTL())
	assert.Equal(t, 30*24*time.Hour, cfg.ReservationRetention())
	assert.Equal(t, time.Minute, cfg.SweepInterval())
	assert.Equal(t, 500, cfg.SweepBatchSize)
	assert.Equal(t, 30*24*time.Hour, cfg.CancellationStatsWindow())
	assert.Equal(t, RefundProviderStub, cfg.RefundProvider)
	assert.True(t, cfg.KafkaEnabled)
}

func TestLoad_CustomValues(t *testing.T) {
	setEnvs(t, map[string]string{
		"HTTP_PORT":                      "9100",
		"STORAGE_DRIVER":                 "memory",
		"RESERVATION_TTL_MINUTES":        "5",
		"SWEEP_INTERVAL_SECONDS":         "10",
		"CANCELLATION_STATS_WINDOW_DAYS": "7",
		"KAFKA_ENABLED":                  "false",
		"REDIS_HOST":                     "redis",
	})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.HTTPPort)
	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	assert.Equal(t, 5*time.Minute, cfg.ReservationTTL())
	assert.Equal(t, 10*time.Second, cfg.SweepInterval())
	assert.Equal(t, 7*24*time.Hour, cfg.CancellationStatsWindow())
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, "redis", cfg.RedisHost)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		envs    map[string]string
		wantErr string
	}{
		{"http port", map[string]string{"HTTP_PORT": "0"}, "invalid HTTP port"},
		{"storage driver", map[string]string{"STORAGE_DRIVER": "mongo"}, "STORAGE_DRIVER must be"},
		{"sample rate", map[string]string{"OTEL_SAMPLE_RATE": "2.0"}, "OTEL_SAMPLE_RATE must be between 0.0 and 1.0"},
		{"zero ttl", map[string]string{"RESERVATION_TTL_MINUTES": "0"}, "RESERVATION_TTL_MINUTES must be > 0"},
		{"negative ttl", map[string]string{"RESERVATION_TTL_MINUTES": "-1"}, "RESERVATION_TTL_MINUTES must be > 0"},
		{"retention", map[string]string{"RESERVATION_RETENTION_DAYS": "0"}, "RESERVATION_RETENTION_DAYS must be > 0"},
		{"sweep interval", map[string]string{"SWEEP_INTERVAL_SECONDS": "0"}, "SWEEP_INTERVAL_SECONDS must be > 0"},
		{"sweep batch", map[string]string{"SWEEP_BATCH_SIZE": "-5"}, "SWEEP_BATCH_SIZE must be > 0"},
		{"stats window", map[string]string{"CANCELLATION_STATS_WINDOW_DAYS": "0"}, "CANCELLATION_STATS_WINDOW_DAYS must be > 0"},
		{"refund provider", map[string]string{"REFUND_PROVIDER": "stripe"}, "REFUND_PROVIDER must be"},
		{"breaker ratio", map[string]string{"REFUND_BREAKER_FAILURE_RATIO": "1.5"}, "REFUND_BREAKER_FAILURE_RATIO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnvs(t, tt.envs)

			cfg, err := Load()

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_EmptyKafkaBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()

	// caarlos0/env/v10 treats an empty string as unset and falls back to
	// the envDefault.
	if err != nil {
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "KAFKA_BROKERS is required")
	} else {
		require.NotNil(t, cfg)
		assert.NotEmpty(t, cfg.KafkaBrokers)
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{
		PostgresUser: "u",
		PostgresPass: "p",
		PostgresHost: "db",
		PostgresPort: 5433,
		PostgresDB:   "inventory_db",
		PostgresSSL:  "require",
	}

	assert.Equal(t, "postgres://u:p@db:5433/inventory_db?sslmode=require", cfg.PostgresDSN())
}
