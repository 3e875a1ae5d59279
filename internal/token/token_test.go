package token_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/beamd/internal/tenant"
	"github.com/fyrsmithlabs/beamd/internal/token"
)

func newIssuer(t *testing.T) *token.Issuer {
	t.Helper()
	issuer, err := token.NewIssuer(token.Config{Secret: "test-secret"})
	require.NoError(t, err)
	return issuer
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	_, err := token.NewIssuer(token.Config{})
	assert.Error(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	issuer := newIssuer(t)

	scope := tenant.Scope{TenantID: "t1", TenantUserID: "u1"}
	raw, err := issuer.Issue(scope)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	got, err := issuer.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, scope, got)
}

func TestIssueRejectsEmptyScope(t *testing.T) {
	issuer := newIssuer(t)

	_, err := issuer.Issue(tenant.Scope{TenantID: "t1"})
	assert.ErrorIs(t, err, tenant.ErrInvalidScope)
}

func TestVerifyGarbage(t *testing.T) {
	issuer := newIssuer(t)

	_, err := issuer.Verify("not.a.token")
	assert.ErrorIs(t, err, token.ErrInvalid)
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := newIssuer(t)
	other, err := token.NewIssuer(token.Config{Secret: "different"})
	require.NoError(t, err)

	raw, err := other.Issue(tenant.Scope{TenantID: "t1", TenantUserID: "u1"})
	require.NoError(t, err)

	_, err = issuer.Verify(raw)
	assert.ErrorIs(t, err, token.ErrInvalid)
}

func TestVerifyExpired(t *testing.T) {
	issuer, err := token.NewIssuer(token.Config{Secret: "test-secret", TTL: time.Millisecond})
	require.NoError(t, err)

	raw, err := issuer.Issue(tenant.Scope{TenantID: "t1", TenantUserID: "u1"})
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = issuer.Verify(raw)
	assert.ErrorIs(t, err, token.ErrExpired)
	assert.NotErrorIs(t, err, token.ErrInvalid)
}
