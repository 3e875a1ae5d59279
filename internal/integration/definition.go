package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate checks `validate` struct tags on decoded models.
var validate = validator.New()

// Definition is the contract every integration type implements.
//
// ConfigModel and ConnectionModel return fresh pointers to the typed
// schema structs; DecodeStrict parses arbitrary payloads against them,
// rejecting unknown fields.
type Definition interface {
	// Name is the display name.
	Name() string

	// Slug is the default stable identifier used in routing and storage.
	// A Registry entry may override it with an explicit slug.
	Slug() string

	// LogoURL is display metadata, may be empty.
	LogoURL() string

	// Validate checks the class-level contract: non-empty name and slug,
	// plus non-empty OAuth2 endpoints for OAuth2-based integrations.
	// Registration refuses definitions that fail this check.
	Validate() error

	// ConfigModel returns a new instance-level configuration model.
	ConfigModel() interface{}

	// ConnectionModel returns a new per-tenant credential model.
	ConnectionModel() interface{}

	// ValidateConnection reports whether cfg parses against the
	// connection model. Schema violations yield false, never an error.
	ValidateConnection(cfg map[string]interface{}) bool

	// Pull fetches all documents visible to the given connection. The
	// pull is eager; any single upstream record that cannot be parsed is
	// skipped with a reason rather than failing the batch.
	Pull(ctx context.Context, conn map[string]interface{}) (*PullResult, error)
}

// SkippedRecord describes one upstream record dropped during a pull.
type SkippedRecord struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// PullResult is the outcome of a document pull.
type PullResult struct {
	// Documents holds raw document blobs in upstream order.
	Documents []string `json:"documents"`

	// Skipped lists records that could not be parsed.
	Skipped []SkippedRecord `json:"skipped,omitempty"`
}

// DecodeStrict decodes raw into model, rejecting unknown fields, then
// checks `validate` tags. model must be a pointer to a struct.
func DecodeStrict(raw map[string]interface{}, model interface{}) error {
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(model); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}

	if err := validate.Struct(model); err != nil {
		return fmt.Errorf("validating payload: %w", err)
	}
	return nil
}

// validateAttrs checks the base class-level contract.
func validateAttrs(name, slug string) error {
	if name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalid)
	}
	if slug == "" {
		return fmt.Errorf("%w: slug is empty", ErrInvalid)
	}
	return nil
}
