// Package embeddings turns text into vectors.
//
// The production provider speaks the OpenAI-compatible embeddings API
// through langchaingo, which covers both OpenAI itself and local TEI
// (Text Embeddings Inference) servers. A deterministic mock provider
// backs tests and offline development.
package embeddings

import (
	"context"
	"errors"
	"fmt"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// DefaultDimension is the embedding width assumed when the config does
// not override it.
const DefaultDimension = 1024

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates unusable configuration.
	ErrInvalidConfig = errors.New("invalid embeddings config")
)

// Provider generates embeddings.
type Provider interface {
	// EmbedDocuments embeds a batch of texts, one vector per text.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension is the width of produced vectors.
	Dimension() int
}

// Config holds provider settings.
type Config struct {
	// Provider is "openai" or "mock". Default "openai".
	Provider string `koanf:"provider"`

	// BaseURL is the API root. For TEI use the server's /v1 root.
	BaseURL string `koanf:"base_url"`

	// Model names the embedding model.
	Model string `koanf:"model"`

	// APIKey is required for OpenAI, optional for TEI.
	APIKey string `koanf:"api_key"`

	// Dimension is the vector width. Default DefaultDimension.
	Dimension int `koanf:"dimension"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = "openai"
	}
	if c.Dimension == 0 {
		c.Dimension = DefaultDimension
	}
}

// Validate checks required fields for the selected provider.
func (c *Config) Validate() error {
	if c.Provider == "openai" {
		if c.BaseURL == "" {
			return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
		}
		if c.Model == "" {
			return fmt.Errorf("%w: model required", ErrInvalidConfig)
		}
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	return nil
}

// New builds the provider named by cfg.Provider, wrapped with request
// metrics.
func New(cfg Config) (Provider, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case "openai":
		p, err := NewOpenAI(cfg)
		if err != nil {
			return nil, err
		}
		return withMetrics(p, "openai"), nil
	case "mock":
		return withMetrics(NewMock(cfg.Dimension), "mock"), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// OpenAI is the langchaingo-backed provider.
type OpenAI struct {
	embedder  *lcembeddings.EmbedderImpl
	dimension int
}

// NewOpenAI creates a provider for an OpenAI-compatible endpoint.
func NewOpenAI(cfg Config) (*OpenAI, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		// langchaingo requires a token; TEI ignores it.
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}

	embedder, err := lcembeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &OpenAI{embedder: embedder, dimension: cfg.Dimension}, nil
}

// EmbedDocuments embeds a batch of texts.
func (p *OpenAI) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding documents: %w", err)
	}
	return vectors, nil
}

// EmbedQuery embeds one query string.
func (p *OpenAI) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	vector, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return vector, nil
}

// Dimension returns the configured vector width.
func (p *OpenAI) Dimension() int {
	return p.dimension
}
