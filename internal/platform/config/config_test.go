package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":5001", cfg.Addr)
	assert.Equal(t, StorageMemory, cfg.LedgerBackend)
	assert.Equal(t, "enrollment.admissions", cfg.Kafka.Topic)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 2*time.Second, cfg.Compensate.MaxElapsed)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", StorageRedis)
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("ADMIN_API_TOKEN", "ops")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, StorageRedis, cfg.LedgerBackend)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "ops", cfg.AdminToken)
}

func TestServerValidate(t *testing.T) {
	tests := map[string]struct {
		cfg     Server
		wantErr bool
	}{
		"memory":               {cfg: Server{LedgerBackend: StorageMemory}},
		"postgres with dsn":    {cfg: Server{LedgerBackend: StoragePostgres, Postgres: PostgresConfig{DSN: "postgres://x"}}},
		"postgres without dsn": {cfg: Server{LedgerBackend: StoragePostgres}, wantErr: true},
		"redis without url":    {cfg: Server{LedgerBackend: StorageRedis}, wantErr: true},
		"redis without dsn":    {cfg: Server{LedgerBackend: StorageRedis, Redis: RedisConfig{URL: "redis://x"}}, wantErr: true},
		"redis with dsn":       {cfg: Server{LedgerBackend: StorageRedis, Redis: RedisConfig{URL: "redis://x"}, Postgres: PostgresConfig{DSN: "postgres://x"}}},
		"unknown backend":      {cfg: Server{LedgerBackend: "etcd"}, wantErr: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestChaosFromEnvDefaults(t *testing.T) {
	cfg, err := ChaosFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.ConcurrentSessions)
	assert.Equal(t, 50, cfg.HighLoadRequests)
	assert.Equal(t, 10, cfg.HighLoadWorkers)
	assert.InDelta(t, 0.3, cfg.CancelProbability, 1e-9)
	assert.InDelta(t, 0.8, cfg.SuccessThreshold, 1e-9)
	assert.Equal(t, time.Second, cfg.FaultDelayMin)
	assert.Equal(t, 3*time.Second, cfg.FaultDelayMax)
	assert.Equal(t, 30*time.Second, cfg.RecoveryTimeout)
	assert.Equal(t, 5*time.Second, cfg.RecoveryInterval)
}
