// Package document implements the ingestion and retrieval pipeline:
// documents are split into chunks, chunks are embedded and mirrored into
// the vector store, and queries search that mirror before joining chunk
// content back from the relational store.
package document

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a document or chunk does not exist
	// within the caller's tenant scope.
	ErrNotFound = errors.New("document not found")

	// ErrInvalid is returned for unusable input, like empty content.
	ErrInvalid = errors.New("invalid document")
)

// Document is one ingested source text.
type Document struct {
	ID string `db:"id" json:"id"`

	// Name is a display label, may be empty.
	Name string `db:"name" json:"name,omitempty"`

	// ConnectionID links documents pulled through an integration
	// connection. Empty for direct uploads.
	ConnectionID string `db:"connection_id" json:"connection_id,omitempty"`

	Content string `db:"content" json:"content"`

	TenantID     string `db:"tenant_id" json:"tenant_id"`
	TenantUserID string `db:"tenant_user_id" json:"tenant_user_id"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Chunk is one embedded slice of a document.
type Chunk struct {
	ID         string `db:"id" json:"id"`
	DocumentID string `db:"document_id" json:"document_id"`

	// Index is the chunk's position within its document.
	Index int `db:"idx" json:"index"`

	Content string `db:"content" json:"content"`

	TenantID     string `db:"tenant_id" json:"tenant_id"`
	TenantUserID string `db:"tenant_user_id" json:"tenant_user_id"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Match is one retrieval hit.
type Match struct {
	Chunk *Chunk  `json:"chunk"`
	Score float32 `json:"score"`
}

// Store persists documents and chunks. Implementations filter every
// operation by the tenant scope in ctx; rows outside it surface
// ErrNotFound. Deleting a document cascades to its chunks.
type Store interface {
	InsertDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, id string) (*Document, error)
	ListDocuments(ctx context.Context) ([]*Document, error)
	DeleteDocument(ctx context.Context, id string) error

	InsertChunks(ctx context.Context, chunks []*Chunk) error
	GetChunk(ctx context.Context, id string) (*Chunk, error)
	ListChunks(ctx context.Context, documentID string) ([]*Chunk, error)
	UpdateChunk(ctx context.Context, chunk *Chunk) error
	DeleteChunk(ctx context.Context, id string) error
}
