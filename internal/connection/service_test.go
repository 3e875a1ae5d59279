package connection_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/beamd/internal/connection"
	"github.com/fyrsmithlabs/beamd/internal/integration"
	"github.com/fyrsmithlabs/beamd/internal/tenant"
)

// memStore is an in-memory Store with the same tenant semantics as the
// SQL implementation.
type memStore struct {
	mu    sync.Mutex
	conns map[string]*connection.Connection

	failInsert bool
}

func newMemStore() *memStore {
	return &memStore{conns: make(map[string]*connection.Connection)}
}

func (m *memStore) InsertConnection(ctx context.Context, conn *connection.Connection) error {
	if m.failInsert {
		return errors.New("disk full")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *conn
	m.conns[conn.ID] = &copied
	return nil
}

func (m *memStore) GetConnection(ctx context.Context, id string) (*connection.Connection, error) {
	scope, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.conns[id]
	if !ok || conn.TenantID != scope.TenantID || conn.TenantUserID != scope.TenantUserID {
		return nil, connection.ErrNotFound
	}
	copied := *conn
	return &copied, nil
}

func (m *memStore) ListConnections(ctx context.Context) ([]*connection.Connection, error) {
	scope, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*connection.Connection
	for _, conn := range m.conns {
		if conn.TenantID == scope.TenantID && conn.TenantUserID == scope.TenantUserID {
			copied := *conn
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memStore) UpdateConnection(ctx context.Context, conn *connection.Connection) error {
	if _, err := m.GetConnection(ctx, conn.ID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *conn
	m.conns[conn.ID] = &copied
	return nil
}

func (m *memStore) DeleteConnection(ctx context.Context, id string) error {
	if _, err := m.GetConnection(ctx, id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conns, id)
	return nil
}

// plainDefinition is a non-OAuth2 integration with one required field.
type plainDefinition struct{}

type plainConnection struct {
	APIKey string `json:"api_key" validate:"required"`
}

func (plainDefinition) Name() string                 { return "Plain" }
func (plainDefinition) Slug() string                 { return "plain" }
func (plainDefinition) LogoURL() string              { return "" }
func (plainDefinition) Validate() error              { return nil }
func (plainDefinition) ConfigModel() interface{}     { return &struct{}{} }
func (plainDefinition) ConnectionModel() interface{} { return &plainConnection{} }

func (plainDefinition) ValidateConnection(cfg map[string]interface{}) bool {
	var model plainConnection
	return integration.DecodeStrict(cfg, &model) == nil
}

func (plainDefinition) Pull(ctx context.Context, conn map[string]interface{}) (*integration.PullResult, error) {
	return &integration.PullResult{Documents: []string{"plain doc"}}, nil
}

func testRegistry(t *testing.T) *integration.Registry {
	t.Helper()
	registry := integration.NewRegistry()
	require.NoError(t, registry.Add(integration.NewMockOAuth2(integration.OAuth2Config{
		ClientID:     "id",
		ClientSecret: "secret",
	}), ""))
	require.NoError(t, registry.Add(plainDefinition{}, ""))
	return registry
}

func testService(t *testing.T, store connection.Store) *connection.Service {
	t.Helper()
	return connection.NewService(store, testRegistry(t), "https://beamd.example/oauth/callback", nil)
}

func scoped(tenantID, userID string) context.Context {
	return tenant.ContextWithScope(context.Background(), tenant.Scope{
		TenantID:     tenantID,
		TenantUserID: userID,
	})
}

func TestCreateOAuth2StartsPending(t *testing.T) {
	svc := testService(t, newMemStore())
	ctx := scoped("t1", "u1")

	conn, err := svc.Create(ctx, "mock_oauth2", nil)
	require.NoError(t, err)

	assert.NotEmpty(t, conn.ID)
	assert.Equal(t, connection.StatusPending, conn.Status)
	assert.Equal(t, "t1", conn.TenantID)
	assert.Equal(t, "u1", conn.TenantUserID)
}

func TestCreateOAuth2DiscardsSuppliedConfig(t *testing.T) {
	store := newMemStore()
	svc := testService(t, store)
	ctx := scoped("t1", "u1")

	conn, err := svc.Create(ctx, "mock_oauth2", map[string]interface{}{
		"garbage": "not-a-credential",
	})
	require.NoError(t, err)
	assert.Empty(t, conn.Config)

	stored, err := store.GetConnection(ctx, conn.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Config)
}

func TestCreatePlainValidatesConfig(t *testing.T) {
	svc := testService(t, newMemStore())
	ctx := scoped("t1", "u1")

	_, err := svc.Create(ctx, "plain", map[string]interface{}{})
	assert.ErrorIs(t, err, connection.ErrInvalid)

	conn, err := svc.Create(ctx, "plain", map[string]interface{}{"api_key": "k"})
	require.NoError(t, err)
	assert.Equal(t, connection.StatusConnected, conn.Status)
}

func TestCreateUnknownIntegration(t *testing.T) {
	svc := testService(t, newMemStore())

	_, err := svc.Create(scoped("t1", "u1"), "nope", nil)
	assert.ErrorIs(t, err, integration.ErrNotFound)
}

func TestCreateRequiresScope(t *testing.T) {
	svc := testService(t, newMemStore())

	_, err := svc.Create(context.Background(), "mock_oauth2", nil)
	assert.ErrorIs(t, err, tenant.ErrMissingScope)
}

func TestCreateStoreFailure(t *testing.T) {
	store := newMemStore()
	store.failInsert = true
	svc := testService(t, store)

	_, err := svc.Create(scoped("t1", "u1"), "mock_oauth2", nil)
	assert.ErrorIs(t, err, connection.ErrCreationFailed)
}

func TestCompleteOAuth2(t *testing.T) {
	svc := testService(t, newMemStore())
	ctx := scoped("t1", "u1")

	conn, err := svc.Create(ctx, "mock_oauth2", nil)
	require.NoError(t, err)

	done, err := svc.CompleteOAuth2(ctx, conn.ID, "the-code")
	require.NoError(t, err)
	assert.Equal(t, connection.StatusConnected, done.Status)
	assert.Equal(t, "mock-access-token", done.Config["access_token"])
	assert.Equal(t, "mock-refresh-token", done.Config["refresh_token"])

	got, err := svc.Get(ctx, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, connection.StatusConnected, got.Status)
}

func TestCompleteOAuth2OnPlainIntegration(t *testing.T) {
	svc := testService(t, newMemStore())
	ctx := scoped("t1", "u1")

	conn, err := svc.Create(ctx, "plain", map[string]interface{}{"api_key": "k"})
	require.NoError(t, err)

	_, err = svc.CompleteOAuth2(ctx, conn.ID, "code")
	assert.ErrorIs(t, err, connection.ErrInvalid)
}

func TestAuthURLCarriesState(t *testing.T) {
	svc := testService(t, newMemStore())
	ctx := scoped("t1", "u1")

	conn, err := svc.Create(ctx, "mock_oauth2", nil)
	require.NoError(t, err)

	raw, err := svc.AuthURL(ctx, conn.ID)
	require.NoError(t, err)
	assert.Contains(t, raw, "state="+conn.ID)
	assert.Contains(t, raw, "response_type=code")
}

func TestTenantIsolation(t *testing.T) {
	svc := testService(t, newMemStore())

	conn, err := svc.Create(scoped("t1", "u1"), "mock_oauth2", nil)
	require.NoError(t, err)

	// Same user id under another tenant sees nothing.
	_, err = svc.Get(scoped("t2", "u1"), conn.ID)
	assert.ErrorIs(t, err, connection.ErrNotFound)

	_, err = svc.CompleteOAuth2(scoped("t2", "u1"), conn.ID, "code")
	assert.ErrorIs(t, err, connection.ErrNotFound)

	err = svc.Delete(scoped("t2", "u1"), conn.ID)
	assert.ErrorIs(t, err, connection.ErrNotFound)

	// The owner still sees it.
	got, err := svc.Get(scoped("t1", "u1"), conn.ID)
	require.NoError(t, err)
	assert.Equal(t, conn.ID, got.ID)

	list, err := svc.List(scoped("t2", "u1"))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdateConfigRevalidates(t *testing.T) {
	svc := testService(t, newMemStore())
	ctx := scoped("t1", "u1")

	conn, err := svc.Create(ctx, "plain", map[string]interface{}{"api_key": "k"})
	require.NoError(t, err)

	_, err = svc.UpdateConfig(ctx, conn.ID, map[string]interface{}{"wrong": true})
	assert.ErrorIs(t, err, connection.ErrInvalid)

	updated, err := svc.UpdateConfig(ctx, conn.ID, map[string]interface{}{"api_key": "k2"})
	require.NoError(t, err)
	assert.Equal(t, "k2", updated.Config["api_key"])
	assert.Equal(t, connection.StatusConnected, updated.Status)
}

func TestDisconnect(t *testing.T) {
	svc := testService(t, newMemStore())
	ctx := scoped("t1", "u1")

	conn, err := svc.Create(ctx, "plain", map[string]interface{}{"api_key": "k"})
	require.NoError(t, err)

	down, err := svc.Disconnect(ctx, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, connection.StatusDisconnected, down.Status)

	_, err = svc.Pull(ctx, conn.ID)
	assert.ErrorIs(t, err, connection.ErrInvalid)
}

func TestPull(t *testing.T) {
	svc := testService(t, newMemStore())
	ctx := scoped("t1", "u1")

	conn, err := svc.Create(ctx, "plain", map[string]interface{}{"api_key": "k"})
	require.NoError(t, err)

	result, err := svc.Pull(ctx, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"plain doc"}, result.Documents)
}

func TestDelete(t *testing.T) {
	svc := testService(t, newMemStore())
	ctx := scoped("t1", "u1")

	conn, err := svc.Create(ctx, "mock_oauth2", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, conn.ID))

	_, err = svc.Get(ctx, conn.ID)
	assert.ErrorIs(t, err, connection.ErrNotFound)
}
