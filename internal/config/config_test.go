package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Database.Driver != "memory" {
		t.Fatalf("driver = %q, want memory", cfg.Database.Driver)
	}
	if cfg.Sessions.TTL != 30*time.Minute {
		t.Fatalf("ttl = %v, want 30m", cfg.Sessions.TTL)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  addr: ":9090"
sessions:
  ttl: 1h
wizard:
  default_version: "22.04"
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Sessions.TTL != time.Hour {
		t.Fatalf("ttl = %v, want 1h", cfg.Sessions.TTL)
	}
	if cfg.Wizard.DefaultVersion != "22.04" {
		t.Fatalf("default version = %q, want 22.04", cfg.Wizard.DefaultVersion)
	}
	// Untouched sections keep their defaults.
	if cfg.Wizard.DebounceMillis != 1000 {
		t.Fatalf("debounce = %d, want 1000", cfg.Wizard.DebounceMillis)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("SHOP_SERVER_ADDR", ":7070")
	t.Setenv("SHOP_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Fatalf("addr = %q, want :7070", cfg.Server.Addr)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q, want debug", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
database:
  driver: postgres
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for postgres driver without dsn")
	}
}
