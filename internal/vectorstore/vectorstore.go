// Package vectorstore stores and searches chunk embeddings.
//
// Two implementations are provided: an embedded chromem-go store for
// development and tests, and a Qdrant gRPC store for production. Both are
// tenant fail-closed: every operation requires a tenant scope in the
// context, writes stamp the scope into the point payload, and searches
// filter by it. Results are re-checked against the scope after the store
// returns them.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned for unusable store configuration.
	ErrInvalidConfig = errors.New("invalid vectorstore config")

	// ErrUnavailable is returned when the backing store cannot be
	// reached.
	ErrUnavailable = errors.New("vectorstore unavailable")
)

// Point is one embedded chunk.
type Point struct {
	// ID must be a UUID string; it doubles as the chunk id.
	ID      string
	Vector  []float32
	Content string
	Payload map[string]interface{}
}

// Match is one search hit.
type Match struct {
	ID      string
	Score   float32
	Content string
	Payload map[string]interface{}
}

// Store is the vector storage contract.
type Store interface {
	// Upsert writes points, stamping the caller's tenant scope into
	// each payload.
	Upsert(ctx context.Context, points []Point) error

	// Search returns up to limit matches for vector within the caller's
	// tenant scope, best first.
	Search(ctx context.Context, vector []float32, limit int) ([]Match, error)

	// Delete removes points by id within the caller's tenant scope.
	Delete(ctx context.Context, ids []string) error

	Close() error
}

// Config selects and configures a store implementation.
type Config struct {
	// Provider is "chromem" or "qdrant". Default "chromem".
	Provider string `koanf:"provider"`

	Chromem ChromemConfig `koanf:"chromem"`
	Qdrant  QdrantConfig  `koanf:"qdrant"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = "chromem"
	}
	c.Chromem.ApplyDefaults()
	c.Qdrant.ApplyDefaults()
}

// matchesScope reports whether a returned payload carries the expected
// tenant fields. Filtered searches should never violate this; the check
// guards against misconfigured or pre-existing collections.
func matchesScope(payload map[string]interface{}, filter map[string]interface{}) bool {
	for key, want := range filter {
		got, ok := payload[key]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}
