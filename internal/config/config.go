package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/technosupport/fleetwatch/internal/middleware"
	"github.com/technosupport/fleetwatch/internal/ratelimit"
	"github.com/technosupport/fleetwatch/internal/sim"
)

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type NATSConfig struct {
	URL        string `yaml:"url"`
	Subject    string `yaml:"subject"`
	MaxRetries int    `yaml:"max_retries"`
}

type AnalysisConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

type SimConfig struct {
	TickInterval  time.Duration     `yaml:"tick_interval"`
	Probabilities sim.Probabilities `yaml:"probabilities"`
}

type AuthConfig struct {
	SigningKey string `yaml:"signing_key"`
}

type AlertsConfig struct {
	DedupKeys int           `yaml:"dedup_keys"`
	DedupTTL  time.Duration `yaml:"dedup_ttl"`
}

type AuditConfig struct {
	SpoolDir string `yaml:"spool_dir"`
}

type Config struct {
	Server    ServerConfig               `yaml:"server"`
	Redis     RedisConfig                `yaml:"redis"`
	Postgres  PostgresConfig             `yaml:"postgres"`
	NATS      NATSConfig                 `yaml:"nats"`
	Analysis  AnalysisConfig             `yaml:"analysis"`
	Sim       SimConfig                  `yaml:"sim"`
	Auth      AuthConfig                 `yaml:"auth"`
	Alerts    AlertsConfig               `yaml:"alerts"`
	Audit     AuditConfig                `yaml:"audit"`
	RateLimit middleware.RateLimitConfig `yaml:"rate_limit"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		Redis:  RedisConfig{Addr: "localhost:6379"},
		Sim: SimConfig{
			TickInterval:  3 * time.Second,
			Probabilities: sim.DefaultProbabilities(),
		},
		Alerts: AlertsConfig{DedupKeys: 512, DedupTTL: 5 * time.Minute},
		RateLimit: middleware.RateLimitConfig{
			GlobalIP: ratelimit.LimitConfig{Rate: 300, Window: time.Minute},
			Login:    ratelimit.LimitConfig{Rate: 5, Window: 15 * time.Minute},
		},
	}
}

// Load reads the YAML file and applies environment overrides for secrets.
// A missing file is not an error; defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv lets deployments keep secrets out of the YAML file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("FLEETWATCH_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("FLEETWATCH_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("FLEETWATCH_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("FLEETWATCH_POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("FLEETWATCH_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("FLEETWATCH_ANALYSIS_API_KEY"); v != "" {
		cfg.Analysis.APIKey = v
	}
	if v := os.Getenv("FLEETWATCH_SIGNING_KEY"); v != "" {
		cfg.Auth.SigningKey = v
	}
}
