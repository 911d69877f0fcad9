package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration. Values resolve in three layers:
// built-in defaults, then the YAML file, then OFFICEAPI_* environment
// variables.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Outbox    OutboxConfig    `yaml:"outbox"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type OutboxConfig struct {
	Interval       time.Duration `yaml:"interval"`
	BatchSize      int           `yaml:"batch_size"`
	WebhookURL     string        `yaml:"webhook_url"`
	WebhookSecret  string        `yaml:"webhook_secret"`
	WebhookTimeout time.Duration `yaml:"webhook_timeout"`
}

// BootstrapConfig seeds one API key on startup so a fresh database is
// reachable without manual inserts.
type BootstrapConfig struct {
	APIKey   string `yaml:"api_key"`
	TenantID string `yaml:"tenant_id"`
	KeyName  string `yaml:"key_name"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{Path: "officeapi.sqlite"},
		Outbox: OutboxConfig{
			Interval:       2 * time.Second,
			BatchSize:      50,
			WebhookTimeout: 10 * time.Second,
		},
		Bootstrap: BootstrapConfig{TenantID: "default", KeyName: "bootstrap"},
	}
}

// Load reads the YAML file at path, layered over defaults and under
// environment overrides. An empty path skips the file and uses defaults plus
// environment only.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %q: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Outbox.BatchSize <= 0 {
		return fmt.Errorf("outbox.batch_size must be positive")
	}
	if c.Outbox.Interval <= 0 {
		return fmt.Errorf("outbox.interval must be positive")
	}
	if c.Outbox.WebhookURL != "" && c.Outbox.WebhookSecret == "" {
		return fmt.Errorf("outbox.webhook_secret is required when outbox.webhook_url is set")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("OFFICEAPI_SERVER_ADDR"); val != "" {
		cfg.Server.Addr = val
	}
	if val := os.Getenv("OFFICEAPI_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("OFFICEAPI_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if val := os.Getenv("OFFICEAPI_DATABASE_PATH"); val != "" {
		cfg.Database.Path = val
	}
	if val := os.Getenv("OFFICEAPI_OUTBOX_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Outbox.Interval = d
		}
	}
	if val := os.Getenv("OFFICEAPI_OUTBOX_BATCH_SIZE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Outbox.BatchSize = i
		}
	}
	if val := os.Getenv("OFFICEAPI_OUTBOX_WEBHOOK_URL"); val != "" {
		cfg.Outbox.WebhookURL = val
	}
	if val := os.Getenv("OFFICEAPI_OUTBOX_WEBHOOK_SECRET"); val != "" {
		cfg.Outbox.WebhookSecret = val
	}
	if val := os.Getenv("OFFICEAPI_BOOTSTRAP_API_KEY"); val != "" {
		cfg.Bootstrap.APIKey = val
	}
	if val := os.Getenv("OFFICEAPI_BOOTSTRAP_TENANT_ID"); val != "" {
		cfg.Bootstrap.TenantID = val
	}
	if val := os.Getenv("OFFICEAPI_BOOTSTRAP_KEY_NAME"); val != "" {
		cfg.Bootstrap.KeyName = val
	}
}
