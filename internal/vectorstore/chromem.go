package vectorstore

import (
	"context"
	"fmt"
	"os"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/beamd/internal/tenant"
)

var chromemTracer = otel.Tracer("beamd.vectorstore.chromem")

// ChromemConfig configures the embedded chromem-go store.
type ChromemConfig struct {
	// Path is the persistence directory.
	Path string `koanf:"path"`

	// Compress enables gzip compression of persisted data.
	Compress bool `koanf:"compress"`

	// Collection is the collection name.
	Collection string `koanf:"collection"`
}

// ApplyDefaults fills unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "data/vectorstore"
	}
	if c.Collection == "" {
		c.Collection = "beamd_chunks"
	}
}

// ChromemStore is the embedded store. Vectors are precomputed by the
// embeddings layer, so the collection's embedding function is never
// exercised.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	logger     *zap.Logger
}

// NewChromemStore opens or creates the persistent store at cfg.Path.
func NewChromemStore(cfg ChromemConfig, logger *zap.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()

	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", cfg.Path, err)
	}

	db, err := chromem.NewPersistentDB(cfg.Path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("opening chromem db: %w", err)
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, rejectEmbedding)
	if err != nil {
		return nil, fmt.Errorf("opening collection %s: %w", cfg.Collection, err)
	}

	return &ChromemStore{
		db:         db,
		collection: collection,
		logger:     logger.Named("vectorstore.chromem"),
	}, nil
}

// rejectEmbedding refuses implicit embedding. All vectors arrive
// precomputed.
func rejectEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("implicit embedding not supported")
}

// Upsert writes points with the tenant scope stamped into each payload.
func (s *ChromemStore) Upsert(ctx context.Context, points []Point) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Upsert")
	defer span.End()
	span.SetAttributes(attribute.Int("point_count", len(points)))

	scope, err := tenant.FromContext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if len(points) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(points))
	for i, p := range points {
		metadata := make(map[string]string, len(p.Payload)+2)
		for k, v := range p.Payload {
			metadata[k] = fmt.Sprint(v)
		}
		for k, v := range scope.Metadata() {
			metadata[k] = fmt.Sprint(v)
		}

		docs[i] = chromem.Document{
			ID:        p.ID,
			Content:   p.Content,
			Metadata:  metadata,
			Embedding: p.Vector,
		}
	}

	// Concurrency 1: embeddings are precomputed, there is no work to
	// parallelize.
	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("adding documents: %w", err)
	}

	s.logger.Debug("upserted points", zap.Int("count", len(points)))
	return nil
}

// Search queries by vector within the caller's tenant scope.
func (s *ChromemStore) Search(ctx context.Context, vector []float32, limit int) ([]Match, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("limit", limit))

	scope, err := tenant.FromContext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrInvalidConfig)
	}

	// chromem refuses nResults above the document count.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	where := make(map[string]string)
	for k, v := range scope.Filter() {
		where[k] = fmt.Sprint(v)
	}

	results, err := s.collection.QueryEmbedding(ctx, vector, limit, where, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		payload := make(map[string]interface{}, len(r.Metadata))
		for k, v := range r.Metadata {
			payload[k] = v
		}
		if !matchesScope(payload, scope.Filter()) {
			continue
		}
		matches = append(matches, Match{
			ID:      r.ID,
			Score:   r.Similarity,
			Content: r.Content,
			Payload: payload,
		})
	}

	span.SetAttributes(attribute.Int("result_count", len(matches)))
	return matches, nil
}

// Delete removes points by id within the caller's tenant scope.
func (s *ChromemStore) Delete(ctx context.Context, ids []string) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Delete")
	defer span.End()
	span.SetAttributes(attribute.Int("id_count", len(ids)))

	scope, err := tenant.FromContext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	where := make(map[string]string)
	for k, v := range scope.Filter() {
		where[k] = fmt.Sprint(v)
	}

	for _, id := range ids {
		if err := s.collection.Delete(ctx, where, nil, id); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("deleting point %s: %w", id, err)
		}
	}
	return nil
}

// Close is a no-op; chromem persists on write.
func (s *ChromemStore) Close() error {
	return nil
}
