package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/platewise/platewise/internal/config"
)

func TestLoadFromReader_Defaults(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddress != ":8080" {
		t.Errorf("ListenAddress = %q, want :8080", cfg.Server.ListenAddress)
	}
	if cfg.Server.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.Server.LogLevel)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.Server.ShutdownTimeout)
	}
	if len(cfg.Providers.Chain) != 2 || cfg.Providers.Chain[0] != "fatsecret" || cfg.Providers.Chain[1] != "usda" {
		t.Errorf("Chain = %v, want [fatsecret usda]", cfg.Providers.Chain)
	}
	if cfg.Resolver.Parallelism != 4 {
		t.Errorf("Parallelism = %d, want 4", cfg.Resolver.Parallelism)
	}
}

func TestLoadFromReader_FullFile(t *testing.T) {
	const doc = `
server:
  listen_address: ":9090"
  log_level: debug
  shutdown_timeout: 5s
providers:
  chain: [usda]
  usda:
    api_key: test-key
postgres:
  dsn: "postgres://localhost/platewise"
resolver:
  parallelism: 2
`
	cfg, err := config.LoadFromReader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddress != ":9090" {
		t.Errorf("ListenAddress = %q, want :9090", cfg.Server.ListenAddress)
	}
	if cfg.Providers.USDA.APIKey != "test-key" {
		t.Errorf("USDA.APIKey = %q, want test-key", cfg.Providers.USDA.APIKey)
	}
	if cfg.Resolver.Parallelism != 2 {
		t.Errorf("Parallelism = %d, want 2", cfg.Resolver.Parallelism)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader("server:\n  listen_adress: \":8080\"\n"))
	if err == nil {
		t.Fatal("LoadFromReader: accepted a misspelled field, want an error")
	}
}

func TestLoadFromReader_EnvOverlay(t *testing.T) {
	t.Setenv("USDA_API_KEY", "from-env")

	cfg, err := config.LoadFromReader(strings.NewReader("providers:\n  usda:\n    api_key: from-file\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Providers.USDA.APIKey != "from-env" {
		t.Errorf("USDA.APIKey = %q, want the environment value", cfg.Providers.USDA.APIKey)
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader("server:\n  log_level: verbose\n"))
	if err == nil || !strings.Contains(err.Error(), "log_level") {
		t.Fatalf("LoadFromReader: got %v, want a log_level validation error", err)
	}
}

func TestValidate_DuplicateProvider(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader("providers:\n  chain: [usda, usda]\n"))
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("LoadFromReader: got %v, want a duplicate-provider error", err)
	}
}
