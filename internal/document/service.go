package document

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/beamd/internal/embeddings"
	"github.com/fyrsmithlabs/beamd/internal/events"
	"github.com/fyrsmithlabs/beamd/internal/tenant"
	"github.com/fyrsmithlabs/beamd/internal/vectorstore"
)

// Service runs the document pipeline on top of the relational store, the
// embeddings provider and the vector store.
type Service struct {
	store    Store
	vectors  vectorstore.Store
	embedder embeddings.Provider
	splitter Splitter
	events   *events.Publisher
	logger   *zap.Logger

	now func() time.Time
}

// NewService creates a document service. events may be nil.
func NewService(store Store, vectors vectorstore.Store, embedder embeddings.Provider, splitter Splitter, publisher *events.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if splitter == nil {
		splitter = newlineSplitter{}
	}
	return &Service{
		store:    store,
		vectors:  vectors,
		embedder: embedder,
		splitter: splitter,
		events:   publisher,
		logger:   logger.Named("document"),
		now:      time.Now,
	}
}

// CreateInput carries the fields of a new document.
type CreateInput struct {
	Name         string
	Content      string
	ConnectionID string
}

// Create ingests one document: persist it, split it into chunks, embed
// the chunks and mirror them into the vector store.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Document, error) {
	scope, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	if in.Content == "" {
		return nil, fmt.Errorf("%w: content is empty", ErrInvalid)
	}

	now := s.now().UTC()
	doc := &Document{
		ID:           uuid.NewString(),
		Name:         in.Name,
		ConnectionID: in.ConnectionID,
		Content:      in.Content,
		TenantID:     scope.TenantID,
		TenantUserID: scope.TenantUserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	texts, err := s.splitter.Split(in.Content)
	if err != nil {
		return nil, err
	}

	chunks := make([]*Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &Chunk{
			ID:           uuid.NewString(),
			DocumentID:   doc.ID,
			Index:        i,
			Content:      text,
			TenantID:     scope.TenantID,
			TenantUserID: scope.TenantUserID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}

	if err := s.store.InsertDocument(ctx, doc); err != nil {
		return nil, err
	}
	if len(chunks) > 0 {
		if err := s.store.InsertChunks(ctx, chunks); err != nil {
			return nil, err
		}
		if err := s.indexChunks(ctx, chunks); err != nil {
			return nil, err
		}
	}

	s.events.Publish(events.SubjectDocumentIngested, map[string]interface{}{
		"document_id": doc.ID,
		"tenant_id":   doc.TenantID,
		"chunks":      len(chunks),
	})
	s.logger.Info("document ingested",
		zap.String("document_id", doc.ID),
		zap.Int("chunks", len(chunks)))
	return doc, nil
}

// Get fetches one document within the caller's scope.
func (s *Service) Get(ctx context.Context, id string) (*Document, error) {
	if _, err := tenant.FromContext(ctx); err != nil {
		return nil, err
	}
	return s.store.GetDocument(ctx, id)
}

// List returns all documents within the caller's scope.
func (s *Service) List(ctx context.Context) ([]*Document, error) {
	if _, err := tenant.FromContext(ctx); err != nil {
		return nil, err
	}
	return s.store.ListDocuments(ctx)
}

// Delete removes a document, its chunks and their vector points.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := tenant.FromContext(ctx); err != nil {
		return err
	}

	chunks, err := s.store.ListChunks(ctx, id)
	if err != nil {
		return err
	}

	// Relational delete cascades to chunk rows.
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return err
	}

	if len(chunks) > 0 {
		ids := make([]string, len(chunks))
		for i, chunk := range chunks {
			ids[i] = chunk.ID
		}
		if err := s.vectors.Delete(ctx, ids); err != nil {
			return err
		}
	}

	s.events.Publish(events.SubjectDocumentDeleted, map[string]interface{}{"document_id": id})
	return nil
}

// Query embeds the query text and returns the best-matching chunks
// within the caller's scope. Content is joined back from the relational
// store; vector hits whose rows are gone are dropped.
func (s *Service) Query(ctx context.Context, query string, limit int) ([]Match, error) {
	if _, err := tenant.FromContext(ctx); err != nil {
		return nil, err
	}
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrInvalid)
	}
	if limit <= 0 {
		limit = 10
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := s.vectors.Search(ctx, vector, limit)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(hits))
	for _, hit := range hits {
		chunk, err := s.store.GetChunk(ctx, hit.ID)
		if err != nil {
			continue
		}
		matches = append(matches, Match{Chunk: chunk, Score: hit.Score})
	}
	return matches, nil
}

// GetChunk fetches one chunk within the caller's scope.
func (s *Service) GetChunk(ctx context.Context, id string) (*Chunk, error) {
	if _, err := tenant.FromContext(ctx); err != nil {
		return nil, err
	}
	return s.store.GetChunk(ctx, id)
}

// ListChunks returns a document's chunks in order.
func (s *Service) ListChunks(ctx context.Context, documentID string) ([]*Chunk, error) {
	if _, err := tenant.FromContext(ctx); err != nil {
		return nil, err
	}
	return s.store.ListChunks(ctx, documentID)
}

// CreateChunk appends a chunk to an existing document and indexes it.
func (s *Service) CreateChunk(ctx context.Context, documentID, content string) (*Chunk, error) {
	scope, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, fmt.Errorf("%w: content is empty", ErrInvalid)
	}

	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	existing, err := s.store.ListChunks(ctx, documentID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	chunk := &Chunk{
		ID:           uuid.NewString(),
		DocumentID:   documentID,
		Index:        len(existing),
		Content:      content,
		TenantID:     scope.TenantID,
		TenantUserID: scope.TenantUserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.InsertChunks(ctx, []*Chunk{chunk}); err != nil {
		return nil, err
	}
	if err := s.indexChunks(ctx, []*Chunk{chunk}); err != nil {
		return nil, err
	}
	return chunk, nil
}

// UpdateChunk replaces a chunk's content and re-indexes it.
func (s *Service) UpdateChunk(ctx context.Context, id, content string) (*Chunk, error) {
	if _, err := tenant.FromContext(ctx); err != nil {
		return nil, err
	}
	if content == "" {
		return nil, fmt.Errorf("%w: content is empty", ErrInvalid)
	}

	chunk, err := s.store.GetChunk(ctx, id)
	if err != nil {
		return nil, err
	}

	chunk.Content = content
	chunk.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateChunk(ctx, chunk); err != nil {
		return nil, err
	}
	if err := s.indexChunks(ctx, []*Chunk{chunk}); err != nil {
		return nil, err
	}
	return chunk, nil
}

// DeleteChunk removes a chunk and its vector point.
func (s *Service) DeleteChunk(ctx context.Context, id string) error {
	if _, err := tenant.FromContext(ctx); err != nil {
		return err
	}

	if err := s.store.DeleteChunk(ctx, id); err != nil {
		return err
	}
	return s.vectors.Delete(ctx, []string{id})
}

// indexChunks embeds chunks and upserts their vector points. Points are
// keyed by chunk id so re-indexing overwrites in place.
func (s *Service) indexChunks(ctx context.Context, chunks []*Chunk) error {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	points := make([]vectorstore.Point, len(chunks))
	for i, chunk := range chunks {
		points[i] = vectorstore.Point{
			ID:      chunk.ID,
			Vector:  vectors[i],
			Content: chunk.Content,
			Payload: map[string]interface{}{
				"document_id": chunk.DocumentID,
				"chunk_index": chunk.Index,
			},
		}
	}
	return s.vectors.Upsert(ctx, points)
}
