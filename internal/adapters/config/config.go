package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"hermes/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Engine        EngineConfig
	ErrorTracking ErrorTrackingConfig
	Workers       WorkerConfig
	Metrics       MetricsConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"hermes"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type ClickHouseConfig struct {
	Host     string `envconfig:"CLICKHOUSE_HOST" required:"true"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"macro"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" required:"true"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS" required:"true"`
	GroupID string   `envconfig:"KAFKA_GROUP_ID" default:"hermes"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

type MetricsConfig struct {
	Enabled bool `envconfig:"METRICS_ENABLED" default:"true"`
	Port    int  `envconfig:"METRICS_PORT" default:"9090"`
}

// EngineConfig contains the signal engine's calibration parameters.
// The defaults match the documented conventions: two correlation windows
// (~3 and ~12 trading months), a three-driver coverage floor, and a 24h
// surprise validity window.
type EngineConfig struct {
	Benchmark string `envconfig:"ENGINE_BENCHMARK" default:"DXY"`

	// Correlation windows
	ShortWindowName string `envconfig:"ENGINE_SHORT_WINDOW_NAME" default:"3m"`
	ShortWindowDays int    `envconfig:"ENGINE_SHORT_WINDOW_DAYS" default:"63"`
	ShortWindowMin  int    `envconfig:"ENGINE_SHORT_WINDOW_MIN_OBS" default:"40"`
	LongWindowName  string `envconfig:"ENGINE_LONG_WINDOW_NAME" default:"12m"`
	LongWindowDays  int    `envconfig:"ENGINE_LONG_WINDOW_DAYS" default:"252"`
	LongWindowMin   int    `envconfig:"ENGINE_LONG_WINDOW_MIN_OBS" default:"150"`

	// A benchmark series older than this cannot be correlated against
	BenchmarkMaxAge time.Duration `envconfig:"ENGINE_BENCHMARK_MAX_AGE" default:"120h"`

	// Diagnosis
	MinUsableIndicators int `envconfig:"ENGINE_MIN_USABLE_INDICATORS" default:"3"`

	// Bias scoring
	DirectionThreshold float64       `envconfig:"ENGINE_DIRECTION_THRESHOLD" default:"0.15"`
	ConfidenceFloor    float64       `envconfig:"ENGINE_CONFIDENCE_FLOOR" default:"0.3"`
	MinDrivers         int           `envconfig:"ENGINE_MIN_DRIVERS" default:"3"`
	SurpriseValidity   time.Duration `envconfig:"ENGINE_SURPRISE_VALIDITY" default:"24h"`

	// Symbols the engine computes correlations and biases for
	Symbols []string `envconfig:"ENGINE_SYMBOLS" default:"EUR/USD,GBP/USD,USD/JPY,EUR/GBP,EUR/JPY"`

	// Pipeline
	MaxConcurrency int           `envconfig:"ENGINE_MAX_CONCURRENCY" default:"4"`
	RepoRateLimit  float64       `envconfig:"ENGINE_REPO_RATE_LIMIT" default:"20"` // repository reads per second
	RunLockTTL     time.Duration `envconfig:"ENGINE_RUN_LOCK_TTL" default:"10m"`

	// Price history lookback feeding the correlation engine
	PriceLookbackDays int `envconfig:"ENGINE_PRICE_LOOKBACK_DAYS" default:"400"`
}

// WorkerConfig contains intervals for the background workers
type WorkerConfig struct {
	PipelineInterval       time.Duration `envconfig:"WORKER_PIPELINE_INTERVAL" default:"1h"`
	ReleaseWatcherInterval time.Duration `envconfig:"WORKER_RELEASE_WATCHER_INTERVAL" default:"1m"`
	ReleaseWatchWindow     time.Duration `envconfig:"WORKER_RELEASE_WATCH_WINDOW" default:"2h"`

	PipelineEnabled       bool `envconfig:"WORKER_PIPELINE_ENABLED" default:"true"`
	ReleaseWatcherEnabled bool `envconfig:"WORKER_RELEASE_WATCHER_ENABLED" default:"true"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
