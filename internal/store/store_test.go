package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/beamd/internal/connection"
	"github.com/fyrsmithlabs/beamd/internal/document"
	"github.com/fyrsmithlabs/beamd/internal/store"
	"github.com/fyrsmithlabs/beamd/internal/tenant"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(store.Config{DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func scoped(tenantID, userID string) context.Context {
	return tenant.ContextWithScope(context.Background(), tenant.Scope{
		TenantID:     tenantID,
		TenantUserID: userID,
	})
}

func newConnection(scope tenant.Scope) *connection.Connection {
	now := time.Now().UTC().Truncate(time.Second)
	return &connection.Connection{
		ID:           uuid.NewString(),
		Integration:  "mock_oauth2",
		Config:       map[string]interface{}{"access_token": "at"},
		Status:       connection.StatusPending,
		TenantID:     scope.TenantID,
		TenantUserID: scope.TenantUserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func newDocument(scope tenant.Scope, content string) *document.Document {
	now := time.Now().UTC().Truncate(time.Second)
	return &document.Document{
		ID:           uuid.NewString(),
		Name:         "doc",
		Content:      content,
		TenantID:     scope.TenantID,
		TenantUserID: scope.TenantUserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func newChunk(scope tenant.Scope, documentID string, idx int, content string) *document.Chunk {
	now := time.Now().UTC().Truncate(time.Second)
	return &document.Chunk{
		ID:           uuid.NewString(),
		DocumentID:   documentID,
		Index:        idx,
		Content:      content,
		TenantID:     scope.TenantID,
		TenantUserID: scope.TenantUserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestConnectionRoundTrip(t *testing.T) {
	s := newStore(t)
	scope := tenant.Scope{TenantID: "t1", TenantUserID: "u1"}
	ctx := scoped("t1", "u1")

	conn := newConnection(scope)
	require.NoError(t, s.InsertConnection(ctx, conn))

	got, err := s.GetConnection(ctx, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, conn.ID, got.ID)
	assert.Equal(t, "mock_oauth2", got.Integration)
	assert.Equal(t, connection.StatusPending, got.Status)
	assert.Equal(t, "at", got.Config["access_token"])
}

func TestConnectionTenantIsolation(t *testing.T) {
	s := newStore(t)
	conn := newConnection(tenant.Scope{TenantID: "t1", TenantUserID: "u1"})
	require.NoError(t, s.InsertConnection(scoped("t1", "u1"), conn))

	_, err := s.GetConnection(scoped("t2", "u1"), conn.ID)
	assert.ErrorIs(t, err, connection.ErrNotFound)

	err = s.DeleteConnection(scoped("t2", "u1"), conn.ID)
	assert.ErrorIs(t, err, connection.ErrNotFound)

	conns, err := s.ListConnections(scoped("t1", "u2"))
	require.NoError(t, err)
	assert.Empty(t, conns)
}

func TestConnectionUpdate(t *testing.T) {
	s := newStore(t)
	ctx := scoped("t1", "u1")
	conn := newConnection(tenant.Scope{TenantID: "t1", TenantUserID: "u1"})
	require.NoError(t, s.InsertConnection(ctx, conn))

	conn.Status = connection.StatusConnected
	conn.Config = map[string]interface{}{"access_token": "fresh"}
	conn.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.UpdateConnection(ctx, conn))

	got, err := s.GetConnection(ctx, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, connection.StatusConnected, got.Status)
	assert.Equal(t, "fresh", got.Config["access_token"])
}

func TestConnectionMissingScope(t *testing.T) {
	s := newStore(t)
	_, err := s.GetConnection(context.Background(), "any")
	assert.ErrorIs(t, err, tenant.ErrMissingScope)
}

func TestDocumentRoundTrip(t *testing.T) {
	s := newStore(t)
	scope := tenant.Scope{TenantID: "t1", TenantUserID: "u1"}
	ctx := scoped("t1", "u1")

	doc := newDocument(scope, "hello\nworld")
	require.NoError(t, s.InsertDocument(ctx, doc))

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Content, got.Content)

	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestDocumentTenantIsolation(t *testing.T) {
	s := newStore(t)
	doc := newDocument(tenant.Scope{TenantID: "t1", TenantUserID: "u1"}, "secret")
	require.NoError(t, s.InsertDocument(scoped("t1", "u1"), doc))

	_, err := s.GetDocument(scoped("t2", "u1"), doc.ID)
	assert.ErrorIs(t, err, document.ErrNotFound)
}

func TestDeleteDocumentCascadesChunks(t *testing.T) {
	s := newStore(t)
	scope := tenant.Scope{TenantID: "t1", TenantUserID: "u1"}
	ctx := scoped("t1", "u1")

	doc := newDocument(scope, "a\nb")
	require.NoError(t, s.InsertDocument(ctx, doc))

	chunks := []*document.Chunk{
		newChunk(scope, doc.ID, 0, "a"),
		newChunk(scope, doc.ID, 1, "b"),
	}
	require.NoError(t, s.InsertChunks(ctx, chunks))

	require.NoError(t, s.DeleteDocument(ctx, doc.ID))

	_, err := s.GetChunk(ctx, chunks[0].ID)
	assert.ErrorIs(t, err, document.ErrNotFound)

	listed, err := s.ListChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestChunkOrderAndUpdate(t *testing.T) {
	s := newStore(t)
	scope := tenant.Scope{TenantID: "t1", TenantUserID: "u1"}
	ctx := scoped("t1", "u1")

	doc := newDocument(scope, "x")
	require.NoError(t, s.InsertDocument(ctx, doc))

	second := newChunk(scope, doc.ID, 1, "second")
	first := newChunk(scope, doc.ID, 0, "first")
	require.NoError(t, s.InsertChunks(ctx, []*document.Chunk{second, first}))

	chunks, err := s.ListChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "first", chunks[0].Content)
	assert.Equal(t, "second", chunks[1].Content)

	first.Content = "rewritten"
	first.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.UpdateChunk(ctx, first))

	got, err := s.GetChunk(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "rewritten", got.Content)
}

func TestChunkInsertMissingDocument(t *testing.T) {
	s := newStore(t)
	scope := tenant.Scope{TenantID: "t1", TenantUserID: "u1"}

	err := s.InsertChunks(scoped("t1", "u1"), []*document.Chunk{
		newChunk(scope, "no-such-document", 0, "orphan"),
	})
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	s := newStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
