package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends for the seat ledger and registration store.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string `env:"ENROLLMENT_ADDR" envDefault:":5001"`
	JWTSigningKey string `env:"JWT_SECRET_KEY" envDefault:"dev-secret-key-change-in-production"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"LOG_FORMAT" envDefault:"json"`
	SeedFile      string `env:"SEED_FILE"`
	AdminToken    string `env:"ADMIN_API_TOKEN"`

	// LedgerBackend selects the seat ledger; registrations follow Postgres when
	// a DSN is configured and stay in memory otherwise.
	LedgerBackend string `env:"LEDGER_BACKEND" envDefault:"memory"`

	Postgres   PostgresConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Compensate CompensationConfig
}

// PostgresConfig holds the relational store connection.
type PostgresConfig struct {
	DSN             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// RedisConfig holds the Redis ledger connection.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"20"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig enables the admission decision stream when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"KAFKA_ADMISSION_TOPIC" envDefault:"enrollment.admissions"`
}

// CompensationConfig bounds the synchronous retry of compensating writes before
// they are handed to the reconciler.
type CompensationConfig struct {
	MaxElapsed        time.Duration `env:"COMPENSATION_MAX_ELAPSED" envDefault:"2s"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"1s"`
}

// Chaos configures the chaos experiment driver.
type Chaos struct {
	BaseURL       string        `env:"CHAOS_BASE_URL" envDefault:"http://localhost:5001"`
	JWTSigningKey string        `env:"JWT_SECRET_KEY" envDefault:"dev-secret-key-change-in-production"`
	AdminToken    string        `env:"ADMIN_API_TOKEN"`
	CallTimeout   time.Duration `env:"CHAOS_CALL_TIMEOUT" envDefault:"10s"`
	ProbeTimeout  time.Duration `env:"CHAOS_PROBE_TIMEOUT" envDefault:"5s"`
	Seed          int64         `env:"CHAOS_SEED"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`

	ConcurrentSessions int     `env:"CHAOS_CONCURRENT_SESSIONS" envDefault:"20"`
	HighLoadRequests   int     `env:"CHAOS_HIGH_LOAD_REQUESTS" envDefault:"50"`
	HighLoadWorkers    int     `env:"CHAOS_HIGH_LOAD_WORKERS" envDefault:"10"`
	CancelProbability  float64 `env:"CHAOS_CANCEL_PROBABILITY" envDefault:"0.3"`
	SuccessThreshold   float64 `env:"CHAOS_SUCCESS_THRESHOLD" envDefault:"0.8"`
	MaxErrorRatio      float64 `env:"CHAOS_MAX_ERROR_RATIO" envDefault:"0"`

	ThinkTimeMin time.Duration `env:"CHAOS_THINK_MIN" envDefault:"500ms"`
	ThinkTimeMax time.Duration `env:"CHAOS_THINK_MAX" envDefault:"2s"`

	FaultDelayMin   time.Duration `env:"CHAOS_FAULT_DELAY_MIN" envDefault:"1s"`
	FaultDelayMax   time.Duration `env:"CHAOS_FAULT_DELAY_MAX" envDefault:"3s"`
	FaultCalls      int           `env:"CHAOS_FAULT_CALLS" envDefault:"10"`
	FaultMinElapsed time.Duration `env:"CHAOS_FAULT_MIN_ELAPSED" envDefault:"1s"`

	RecoveryTimeout  time.Duration `env:"CHAOS_RECOVERY_TIMEOUT" envDefault:"30s"`
	RecoveryInterval time.Duration `env:"CHAOS_RECOVERY_INTERVAL" envDefault:"5s"`
}

// FromEnv builds a Server config from environment variables so main stays lean.
// A .env file in the working directory is loaded first when present.
func FromEnv() (Server, error) {
	if err := loadDotEnv(); err != nil {
		return Server{}, err
	}
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// ChaosFromEnv builds the chaos driver config from environment variables.
func ChaosFromEnv() (Chaos, error) {
	if err := loadDotEnv(); err != nil {
		return Chaos{}, err
	}
	var cfg Chaos
	if err := env.Parse(&cfg); err != nil {
		return Chaos{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate rejects combinations main cannot wire.
func (s Server) Validate() error {
	switch s.LedgerBackend {
	case StorageMemory:
	case StoragePostgres:
		if s.Postgres.DSN == "" {
			return errors.New("LEDGER_BACKEND=postgres requires DATABASE_URL")
		}
	case StorageRedis:
		if s.Redis.URL == "" {
			return errors.New("LEDGER_BACKEND=redis requires REDIS_URL")
		}
		// Seats held in Redis outlive a restart; the registrations and
		// journal they are reconciled against must too.
		if s.Postgres.DSN == "" {
			return errors.New("LEDGER_BACKEND=redis requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q", s.LedgerBackend)
	}
	return nil
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}
