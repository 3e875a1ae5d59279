// Package config loads beamd configuration from YAML and environment
// variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/beamd/internal/document"
	"github.com/fyrsmithlabs/beamd/internal/embeddings"
	"github.com/fyrsmithlabs/beamd/internal/events"
	"github.com/fyrsmithlabs/beamd/internal/logging"
	"github.com/fyrsmithlabs/beamd/internal/store"
	"github.com/fyrsmithlabs/beamd/internal/token"
	"github.com/fyrsmithlabs/beamd/internal/vectorstore"
)

// Config is the full beamd configuration.
type Config struct {
	Server        ServerConfig            `koanf:"server"`
	Auth          AuthConfig              `koanf:"auth"`
	Logging       logging.Config          `koanf:"logging"`
	Store         store.Config            `koanf:"store"`
	VectorStore   vectorstore.Config      `koanf:"vectorstore"`
	Embeddings    embeddings.Config       `koanf:"embeddings"`
	Splitter      document.SplitterConfig `koanf:"splitter"`
	Events        events.Config           `koanf:"events"`
	Observability ObservabilityConfig     `koanf:"observability"`

	// Integrations maps an integration identifier to its configuration
	// blocks. Several blocks under one identifier need distinct slugs.
	Integrations map[string][]map[string]interface{} `koanf:"integrations"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	// Token configures JWT signing.
	Token token.Config `koanf:"token"`

	// APIKeys gate the token-minting endpoint.
	APIKeys []string `koanf:"api_keys"`

	// RedirectURI is the OAuth2 callback registered with providers.
	RedirectURI string `koanf:"redirect_uri"`
}

// ObservabilityConfig holds tracing settings.
type ObservabilityConfig struct {
	ServiceName  string `koanf:"service_name"`
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	Enabled      bool   `koanf:"enabled"`
}

// applyDefaults fills unset fields across all sections.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "beamd"
	}
	cfg.Store.ApplyDefaults()
	cfg.VectorStore.ApplyDefaults()
	cfg.Embeddings.ApplyDefaults()
}

// Validate checks cross-section requirements.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if err := c.Auth.Token.Validate(); err != nil {
		return err
	}
	if len(c.Auth.APIKeys) == 0 {
		return errors.New("at least one api key is required")
	}
	if err := c.Embeddings.Validate(); err != nil {
		return err
	}
	return c.Logging.Validate()
}
