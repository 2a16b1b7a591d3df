// Package config loads service configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Sessions SessionConfig  `yaml:"sessions"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Wizard   WizardConfig   `yaml:"wizard"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr              string        `yaml:"addr" env:"SHOP_SERVER_ADDR"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" env:"SHOP_SERVER_SHUTDOWN_TIMEOUT"`
	RequestsPerSecond int           `yaml:"requests_per_second" env:"SHOP_SERVER_RPS"`
	Burst             int           `yaml:"burst" env:"SHOP_SERVER_BURST"`
}

// DatabaseConfig selects the storage backend. Driver "memory" skips
// Postgres entirely.
type DatabaseConfig struct {
	Driver        string `yaml:"driver" env:"SHOP_DB_DRIVER"`
	DSN           string `yaml:"dsn" env:"SHOP_DB_DSN"`
	MigrationsDir string `yaml:"migrations_dir" env:"SHOP_DB_MIGRATIONS_DIR"`
}

// RedisConfig enables the Redis session backend when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"SHOP_REDIS_ADDR"`
	Password string `yaml:"password" env:"SHOP_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"SHOP_REDIS_DB"`
}

// SessionConfig controls wizard session lifetime.
type SessionConfig struct {
	TTL       time.Duration `yaml:"ttl" env:"SHOP_SESSION_TTL"`
	SweepSpec string        `yaml:"sweep_spec" env:"SHOP_SESSION_SWEEP_SPEC"`
}

// CatalogConfig points at the product catalog seed document.
type CatalogConfig struct {
	SeedFile string `yaml:"seed_file" env:"SHOP_CATALOG_SEED_FILE"`
	// ReloadSpec is a cron spec for periodic index rebuilds. Empty
	// disables the job.
	ReloadSpec string `yaml:"reload_spec" env:"SHOP_CATALOG_RELOAD_SPEC"`
}

// WizardConfig tunes selector behavior.
type WizardConfig struct {
	DebounceMillis int    `yaml:"debounce_millis" env:"SHOP_WIZARD_DEBOUNCE_MS"`
	DefaultVersion string `yaml:"default_version" env:"SHOP_WIZARD_DEFAULT_VERSION"`
}

// AuthConfig holds the admin JWT secret.
type AuthConfig struct {
	AdminSecret string `yaml:"admin_secret" env:"SHOP_AUTH_ADMIN_SECRET"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"SHOP_LOG_LEVEL"`
	Format string `yaml:"format" env:"SHOP_LOG_FORMAT"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ShutdownTimeout:   10 * time.Second,
			RequestsPerSecond: 50,
			Burst:             100,
		},
		Database: DatabaseConfig{
			Driver:        "memory",
			MigrationsDir: "migrations",
		},
		Sessions: SessionConfig{
			TTL:       30 * time.Minute,
			SweepSpec: "@every 5m",
		},
		Catalog: CatalogConfig{
			SeedFile:   "config/catalog.json",
			ReloadSpec: "@every 15m",
		},
		Wizard: WizardConfig{
			DebounceMillis: 1000,
			DefaultVersion: "20.04",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path, then applies environment overrides.
// A missing file falls back to defaults; a malformed one is an error.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to defaults
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := envdecode.Decode(cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	switch c.Database.Driver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("database.driver must be memory or postgres, got %q", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for the postgres driver")
	}
	if c.Sessions.TTL <= 0 {
		return fmt.Errorf("sessions.ttl must be positive")
	}
	return nil
}
