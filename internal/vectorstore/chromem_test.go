package vectorstore_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/beamd/internal/tenant"
	"github.com/fyrsmithlabs/beamd/internal/vectorstore"
)

func newStore(t *testing.T) *vectorstore.ChromemStore {
	t.Helper()
	store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{
		Path: t.TempDir(),
	}, nil)
	require.NoError(t, err)
	return store
}

func scoped(tenantID, userID string) context.Context {
	return tenant.ContextWithScope(context.Background(), tenant.Scope{
		TenantID:     tenantID,
		TenantUserID: userID,
	})
}

func point(content string, vector []float32) vectorstore.Point {
	return vectorstore.Point{
		ID:      uuid.NewString(),
		Vector:  vector,
		Content: content,
		Payload: map[string]interface{}{"chunk_index": "0"},
	}
}

func TestUpsertRequiresScope(t *testing.T) {
	store := newStore(t)
	err := store.Upsert(context.Background(), []vectorstore.Point{point("a", []float32{1, 0, 0})})
	assert.ErrorIs(t, err, tenant.ErrMissingScope)
}

func TestSearchRequiresScope(t *testing.T) {
	store := newStore(t)
	_, err := store.Search(context.Background(), []float32{1, 0, 0}, 5)
	assert.ErrorIs(t, err, tenant.ErrMissingScope)
}

func TestUpsertAndSearch(t *testing.T) {
	store := newStore(t)
	ctx := scoped("t1", "u1")

	p1 := point("alpha", []float32{1, 0, 0})
	p2 := point("beta", []float32{0, 1, 0})
	require.NoError(t, store.Upsert(ctx, []vectorstore.Point{p1, p2}))

	matches, err := store.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	assert.Equal(t, p1.ID, matches[0].ID)
	assert.Equal(t, "alpha", matches[0].Content)
	assert.Equal(t, "t1", matches[0].Payload["tenant_id"])
	assert.Equal(t, "u1", matches[0].Payload["tenant_user_id"])
}

func TestSearchEmptyStore(t *testing.T) {
	store := newStore(t)
	matches, err := store.Search(scoped("t1", "u1"), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestTenantIsolation(t *testing.T) {
	store := newStore(t)

	require.NoError(t, store.Upsert(scoped("t1", "u1"), []vectorstore.Point{
		point("tenant one secret", []float32{1, 0, 0}),
	}))
	require.NoError(t, store.Upsert(scoped("t2", "u1"), []vectorstore.Point{
		point("tenant two secret", []float32{1, 0, 0}),
	}))

	matches, err := store.Search(scoped("t1", "u1"), []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "tenant one secret", matches[0].Content)

	// Same tenant, different user.
	matches, err = store.Search(scoped("t1", "u2"), []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestDeleteScoped(t *testing.T) {
	store := newStore(t)

	mine := point("mine", []float32{1, 0, 0})
	theirs := point("theirs", []float32{1, 0, 0})
	require.NoError(t, store.Upsert(scoped("t1", "u1"), []vectorstore.Point{mine}))
	require.NoError(t, store.Upsert(scoped("t2", "u1"), []vectorstore.Point{theirs}))

	// Deleting another tenant's point id is a no-op.
	require.NoError(t, store.Delete(scoped("t1", "u1"), []string{theirs.ID}))
	matches, err := store.Search(scoped("t2", "u1"), []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	require.NoError(t, store.Delete(scoped("t1", "u1"), []string{mine.ID}))
	matches, err = store.Search(scoped("t1", "u1"), []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{Path: dir}, nil)
	require.NoError(t, err)

	p := point("durable", []float32{0, 0, 1})
	require.NoError(t, store.Upsert(scoped("t1", "u1"), []vectorstore.Point{p}))
	require.NoError(t, store.Close())

	reopened, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{Path: dir}, nil)
	require.NoError(t, err)

	matches, err := reopened.Search(scoped("t1", "u1"), []float32{0, 0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, p.ID, matches[0].ID)
}

func TestFactoryUnknownProvider(t *testing.T) {
	_, err := vectorstore.New(context.Background(), vectorstore.Config{Provider: "bogus"}, nil)
	assert.ErrorIs(t, err, vectorstore.ErrInvalidConfig)
}

func TestFactoryChromem(t *testing.T) {
	store, err := vectorstore.New(context.Background(), vectorstore.Config{
		Provider: "chromem",
		Chromem:  vectorstore.ChromemConfig{Path: t.TempDir()},
	}, nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}
