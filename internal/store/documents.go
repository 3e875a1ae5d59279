package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/beamd/internal/document"
	"github.com/fyrsmithlabs/beamd/internal/tenant"
)

// InsertDocument writes a new document row.
func (s *Store) InsertDocument(ctx context.Context, doc *document.Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, name, connection_id, content, tenant_id, tenant_user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Name, doc.ConnectionID, doc.Content,
		doc.TenantID, doc.TenantUserID, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}
	return nil
}

// GetDocument fetches one document within the scope in ctx.
func (s *Store) GetDocument(ctx context.Context, id string) (*document.Document, error) {
	scope, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	var doc document.Document
	err = s.db.GetContext(ctx, &doc, `
		SELECT * FROM documents
		WHERE id = ? AND tenant_id = ? AND tenant_user_id = ?`,
		id, scope.TenantID, scope.TenantUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, document.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying document: %w", err)
	}
	return &doc, nil
}

// ListDocuments returns all documents within the scope in ctx.
func (s *Store) ListDocuments(ctx context.Context) ([]*document.Document, error) {
	scope, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	var docs []*document.Document
	err = s.db.SelectContext(ctx, &docs, `
		SELECT * FROM documents
		WHERE tenant_id = ? AND tenant_user_id = ?
		ORDER BY created_at`,
		scope.TenantID, scope.TenantUserID)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes a document row; the chunks foreign key cascades.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	scope, err := tenant.FromContext(ctx)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM documents
		WHERE id = ? AND tenant_id = ? AND tenant_user_id = ?`,
		id, scope.TenantID, scope.TenantUserID)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return requireRow(res, document.ErrNotFound)
}

// InsertChunks writes chunk rows in one transaction.
func (s *Store) InsertChunks(ctx context.Context, chunks []*document.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, chunk := range chunks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO chunks (id, document_id, idx, content, tenant_id, tenant_user_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			chunk.ID, chunk.DocumentID, chunk.Index, chunk.Content,
			chunk.TenantID, chunk.TenantUserID, chunk.CreatedAt, chunk.UpdatedAt)
		if err != nil {
			return fmt.Errorf("inserting chunk %s: %w", chunk.ID, err)
		}
	}
	return tx.Commit()
}

// GetChunk fetches one chunk within the scope in ctx.
func (s *Store) GetChunk(ctx context.Context, id string) (*document.Chunk, error) {
	scope, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	var chunk document.Chunk
	err = s.db.GetContext(ctx, &chunk, `
		SELECT * FROM chunks
		WHERE id = ? AND tenant_id = ? AND tenant_user_id = ?`,
		id, scope.TenantID, scope.TenantUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, document.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying chunk: %w", err)
	}
	return &chunk, nil
}

// ListChunks returns a document's chunks, ordered by index.
func (s *Store) ListChunks(ctx context.Context, documentID string) ([]*document.Chunk, error) {
	scope, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	var chunks []*document.Chunk
	err = s.db.SelectContext(ctx, &chunks, `
		SELECT * FROM chunks
		WHERE document_id = ? AND tenant_id = ? AND tenant_user_id = ?
		ORDER BY idx`,
		documentID, scope.TenantID, scope.TenantUserID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	return chunks, nil
}

// UpdateChunk rewrites a chunk's content within the scope in ctx.
func (s *Store) UpdateChunk(ctx context.Context, chunk *document.Chunk) error {
	scope, err := tenant.FromContext(ctx)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE chunks SET content = ?, updated_at = ?
		WHERE id = ? AND tenant_id = ? AND tenant_user_id = ?`,
		chunk.Content, chunk.UpdatedAt,
		chunk.ID, scope.TenantID, scope.TenantUserID)
	if err != nil {
		return fmt.Errorf("updating chunk: %w", err)
	}
	return requireRow(res, document.ErrNotFound)
}

// DeleteChunk removes a chunk row within the scope in ctx.
func (s *Store) DeleteChunk(ctx context.Context, id string) error {
	scope, err := tenant.FromContext(ctx)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM chunks
		WHERE id = ? AND tenant_id = ? AND tenant_user_id = ?`,
		id, scope.TenantID, scope.TenantUserID)
	if err != nil {
		return fmt.Errorf("deleting chunk: %w", err)
	}
	return requireRow(res, document.ErrNotFound)
}
