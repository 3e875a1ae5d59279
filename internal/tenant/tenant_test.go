package tenant_test

import (
	"context"
	"testing"

	"github.com/fyrsmithlabs/beamd/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContextMissing(t *testing.T) {
	_, err := tenant.FromContext(context.Background())
	assert.ErrorIs(t, err, tenant.ErrMissingScope)
}

func TestFromContextRoundTrip(t *testing.T) {
	scope := tenant.Scope{TenantID: "t1", TenantUserID: "u1"}
	ctx := tenant.ContextWithScope(context.Background(), scope)

	got, err := tenant.FromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, scope, got)
}

func TestFromContextInvalidScope(t *testing.T) {
	ctx := tenant.ContextWithScope(context.Background(), tenant.Scope{TenantID: "t1"})
	_, err := tenant.FromContext(ctx)
	assert.ErrorIs(t, err, tenant.ErrInvalidScope)
}

func TestScopeValidate(t *testing.T) {
	assert.NoError(t, tenant.Scope{TenantID: "t", TenantUserID: "u"}.Validate())
	assert.Error(t, tenant.Scope{TenantID: "t"}.Validate())
	assert.Error(t, tenant.Scope{TenantUserID: "u"}.Validate())
	assert.Error(t, tenant.Scope{}.Validate())
}

func TestScopeFilter(t *testing.T) {
	scope := tenant.Scope{TenantID: "t1", TenantUserID: "u1"}
	filter := scope.Filter()
	assert.Equal(t, "t1", filter["tenant_id"])
	assert.Equal(t, "u1", filter["tenant_user_id"])
}
