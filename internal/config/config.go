// Package config loads and validates the service configuration from YAML,
// with an environment overlay for credentials so secrets never have to
// live in the config file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// Config is the root service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Resolver  ResolverConfig  `yaml:"resolver"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	// ListenAddress is the host:port the HTTP server binds. Default ":8080".
	ListenAddress string `yaml:"listen_address"`

	// LogLevel is one of debug, info, warn, error. Default "info".
	LogLevel string `yaml:"log_level"`

	// ShutdownTimeout bounds graceful shutdown. Default 10s.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ProvidersConfig configures the nutrition provider chain.
type ProvidersConfig struct {
	// Chain lists provider names in priority order; the first entry is the
	// primary, later entries are fallbacks. Default ["fatsecret", "usda"].
	Chain []string `yaml:"chain"`

	FatSecret FatSecretConfig `yaml:"fatsecret"`
	USDA      USDAConfig      `yaml:"usda"`
}

// FatSecretConfig holds the primary provider's credentials and endpoints.
type FatSecretConfig struct {
	ClientID     string `yaml:"client_id" env:"FATSECRET_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"FATSECRET_CLIENT_SECRET"`
	BaseURL      string `yaml:"base_url"`
	TokenURL     string `yaml:"token_url"`
}

// USDAConfig holds the fallback provider's credentials and endpoint.
type USDAConfig struct {
	APIKey  string `yaml:"api_key" env:"USDA_API_KEY"`
	BaseURL string `yaml:"base_url"`
}

// PostgresConfig configures the meal-log store. An empty DSN disables
// persistence; the Log operation then reports failure.
type PostgresConfig struct {
	DSN string `yaml:"dsn" env:"PLATEWISE_POSTGRES_DSN"`
}

// ResolverConfig tunes the resolution engine.
type ResolverConfig struct {
	// Parallelism bounds concurrent provider round-trips per request.
	// Default 4.
	Parallelism int `yaml:"parallelism"`
}

// validLogLevels enumerates accepted log levels.
var validLogLevels = map[string]struct{}{
	"debug": {}, "info": {}, "warn": {}, "error": {},
}

// Load reads, overlays, and validates the configuration file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader decodes YAML from r, applies defaults and the credential
// environment overlay, and validates the result. Unknown YAML fields are
// rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	// Environment credentials win over file values when set.
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("config: environment overlay: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = ":8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if len(c.Providers.Chain) == 0 {
		c.Providers.Chain = []string{"fatsecret", "usda"}
	}
	if c.Resolver.Parallelism <= 0 {
		c.Resolver.Parallelism = 4
	}
}

// Validate checks field-level constraints, joining every failure so the
// operator sees all of them at once.
func (c *Config) Validate() error {
	var errs []error
	if _, ok := validLogLevels[c.Server.LogLevel]; !ok {
		errs = append(errs, fmt.Errorf("server.log_level: unknown level %q", c.Server.LogLevel))
	}
	seen := make(map[string]struct{}, len(c.Providers.Chain))
	for _, name := range c.Providers.Chain {
		if name == "" {
			errs = append(errs, errors.New("providers.chain: empty provider name"))
			continue
		}
		if _, dup := seen[name]; dup {
			errs = append(errs, fmt.Errorf("providers.chain: duplicate provider %q", name))
		}
		seen[name] = struct{}{}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid: %w", errors.Join(errs...))
	}
	return nil
}
