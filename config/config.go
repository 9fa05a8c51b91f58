// Package config provides configuration management for the briefly
// digest engine. It supports loading configuration from YAML files with
// environment variable overrides for deployment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultRedisAddr       = "localhost:6379"
	DefaultQueueName       = "digest-batches"
	DefaultMetricsAddr     = ":9090"
	DefaultWorkerCount     = 4
	DefaultPollInterval    = 1 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// GuardrailsConfig holds guardrail matcher settings.
type GuardrailsConfig struct {
	// RulesPath points at a YAML rule file. Empty uses the embedded
	// default rule set.
	RulesPath string `yaml:"rules_path"`
}

// DecayConfig holds the temporal decay thresholds. Zero values fall
// back to the engine defaults (1h grace, 7d upcoming, 24h stale).
type DecayConfig struct {
	GracePeriod        time.Duration `yaml:"grace_period"`
	UpcomingWindow     time.Duration `yaml:"upcoming_window"`
	DeliveryStaleAfter time.Duration `yaml:"delivery_stale_after"`
}

// RedisConfig holds queue backend settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Queue    string `yaml:"queue"`
}

// PostgresConfig holds the audit store settings. An empty DSN disables
// audit persistence.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// WorkerConfig holds worker pool settings.
type WorkerConfig struct {
	Count           int           `yaml:"count"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the root configuration.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Guardrails GuardrailsConfig `yaml:"guardrails"`
	Decay      DecayConfig      `yaml:"decay"`
	Redis      RedisConfig      `yaml:"redis"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Worker     WorkerConfig     `yaml:"worker"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// Default returns a Config with all defaults applied.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Redis: RedisConfig{
			Addr:  DefaultRedisAddr,
			Queue: DefaultQueueName,
		},
		Worker: WorkerConfig{
			Count:           DefaultWorkerCount,
			PollInterval:    DefaultPollInterval,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Metrics: MetricsConfig{Addr: DefaultMetricsAddr},
	}
}

// Load reads configuration from the given YAML file, applies defaults
// for unset values, then applies environment overrides. A missing file
// is not an error: defaults plus environment are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(cfg)
	overrideFromEnv(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.Queue == "" {
		cfg.Redis.Queue = DefaultQueueName
	}
	if cfg.Worker.Count <= 0 {
		cfg.Worker.Count = DefaultWorkerCount
	}
	if cfg.Worker.PollInterval <= 0 {
		cfg.Worker.PollInterval = DefaultPollInterval
	}
	if cfg.Worker.ShutdownTimeout <= 0 {
		cfg.Worker.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = DefaultMetricsAddr
	}
}

// overrideFromEnv applies BRIEFLY_* environment variables on top of the
// file values, for production deployments.
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("BRIEFLY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BRIEFLY_LOG_JSON"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Logging.JSON = b
		}
	}
	if v := os.Getenv("BRIEFLY_GUARDRAIL_RULES"); v != "" {
		cfg.Guardrails.RulesPath = v
	}
	if v := os.Getenv("BRIEFLY_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("BRIEFLY_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("BRIEFLY_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = n
		}
	}
	if v := os.Getenv("BRIEFLY_QUEUE"); v != "" {
		cfg.Redis.Queue = v
	}
	if v := os.Getenv("BRIEFLY_POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("BRIEFLY_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Worker.Count = n
		}
	}
	if v := os.Getenv("BRIEFLY_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("BRIEFLY_DECAY_GRACE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Decay.GracePeriod = d
		}
	}
	if v := os.Getenv("BRIEFLY_DECAY_UPCOMING"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Decay.UpcomingWindow = d
		}
	}
}
