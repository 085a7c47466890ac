package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "ledger", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "ledger", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, "ledger.events", cfg.Kafka.Topic)
		assert.Equal(t, 3, cfg.Ledger.RetryAttempts)
		assert.Equal(t, 20*time.Millisecond, cfg.Ledger.RetryBaseDelay)
		assert.Equal(t, 5*time.Second, cfg.Ledger.LockTimeout)
		assert.Equal(t, 24*time.Hour, cfg.HTTP.IdempotencyTTL)
		assert.Equal(t, time.Minute, cfg.Ledger.ReplayInterval)
	})

	t.Run("loads values from environment variables with LEDGER prefix", func(t *testing.T) {
		t.Setenv("LEDGER_APP_NAME", "test-ledger")
		t.Setenv("LEDGER_APP_PORT", "9000")
		t.Setenv("LEDGER_DATABASE_HOST", "testdb.local")
		t.Setenv("LEDGER_DATABASE_PORT", "5433")
		t.Setenv("LEDGER_LEDGER_RETRY_ATTEMPTS", "5")
		t.Setenv("LEDGER_LEDGER_LOCK_TIMEOUT", "2s")
		t.Setenv("LEDGER_KAFKA_TOPIC", "audit.ledger")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-ledger", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, 5, cfg.Ledger.RetryAttempts)
		assert.Equal(t, 2*time.Second, cfg.Ledger.LockTimeout)
		assert.Equal(t, "audit.ledger", cfg.Kafka.Topic)
	})

	t.Run("rejects an out of range retry budget", func(t *testing.T) {
		t.Setenv("LEDGER_LEDGER_RETRY_ATTEMPTS", "50")

		_, err := Load()
		assert.ErrorContains(t, err, "ledger.retry_attempts")
	})

	t.Run("production requires secrets", func(t *testing.T) {
		t.Setenv("LEDGER_APP_ENV", "production")
		t.Setenv("LEDGER_JWT_SECRET", "short")

		_, err := Load()
		assert.ErrorContains(t, err, "jwt.secret")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "ledger", Password: "p@ss word", DBName: "ledger", SSLMode: "require"}
	assert.Equal(t, "postgres://ledger:p%40ss%20word@db:5432/ledger?sslmode=require", d.DSN())
}

func TestRedisConfig_Addr(t *testing.T) {
	r := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", r.RedisAddr())
}
