package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/platewise/platewise/pkg/provider/food"
	"github.com/platewise/platewise/pkg/provider/food/fatsecret"
	"github.com/platewise/platewise/pkg/provider/food/usda"
)

// ErrProviderNotRegistered is returned when the provider chain names a
// provider with no registered factory.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// ClientFactory builds one provider client from the loaded configuration.
type ClientFactory func(cfg *Config) (food.Client, error)

// Registry maps provider names to client factories. It is populated at
// startup and read-only afterwards.
type Registry struct {
	factories map[string]ClientFactory
}

// NewRegistry returns a registry preloaded with the built-in providers.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]ClientFactory)}
	r.Register("fatsecret", func(cfg *Config) (food.Client, error) {
		return fatsecret.New(fatsecret.Config{
			ClientID:     cfg.Providers.FatSecret.ClientID,
			ClientSecret: cfg.Providers.FatSecret.ClientSecret,
			BaseURL:      cfg.Providers.FatSecret.BaseURL,
			TokenURL:     cfg.Providers.FatSecret.TokenURL,
		})
	})
	r.Register("usda", func(cfg *Config) (food.Client, error) {
		return usda.New(usda.Config{
			APIKey:  cfg.Providers.USDA.APIKey,
			BaseURL: cfg.Providers.USDA.BaseURL,
		})
	})
	return r
}

// Register adds or replaces a named provider factory.
func (r *Registry) Register(name string, factory ClientFactory) {
	r.factories[name] = factory
}

// Create builds the named provider client.
func (r *Registry) Create(name string, cfg *Config) (food.Client, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotRegistered, name)
	}
	return factory(cfg)
}

// BuildChain creates the configured provider chain in priority order.
// Providers without credentials are skipped with a warning rather than
// failing startup, so a partially configured deployment still resolves
// through the remaining providers. An unknown provider name is an error.
func (r *Registry) BuildChain(cfg *Config, log *slog.Logger) ([]food.Client, error) {
	var clients []food.Client
	for _, name := range cfg.Providers.Chain {
		client, err := r.Create(name, cfg)
		if errors.Is(err, food.ErrNotConfigured) {
			log.Warn("provider skipped, not configured", "provider", name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("config: build provider %q: %w", name, err)
		}
		log.Info("provider configured", "provider", name)
		clients = append(clients, client)
	}
	return clients, nil
}
