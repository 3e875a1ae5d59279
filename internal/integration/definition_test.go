package integration_test

import (
	"testing"

	"github.com/fyrsmithlabs/beamd/internal/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStrict(t *testing.T) {
	var cfg integration.OAuth2Config
	err := integration.DecodeStrict(map[string]interface{}{
		"client_id":     "abc",
		"client_secret": "def",
	}, &cfg)
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.ClientID)
	assert.Equal(t, "def", cfg.ClientSecret)
}

func TestDecodeStrictUnknownField(t *testing.T) {
	var cfg integration.OAuth2Config
	err := integration.DecodeStrict(map[string]interface{}{
		"client_id":     "abc",
		"client_secret": "def",
		"surprise":      true,
	}, &cfg)
	assert.Error(t, err)
}

func TestDecodeStrictMissingRequired(t *testing.T) {
	var cfg integration.OAuth2Config
	err := integration.DecodeStrict(map[string]interface{}{
		"client_id": "abc",
	}, &cfg)
	assert.Error(t, err)
}

func TestValidateConnection(t *testing.T) {
	def := integration.NewMockOAuth2(integration.OAuth2Config{ClientID: "a", ClientSecret: "b"})

	assert.True(t, def.ValidateConnection(map[string]interface{}{
		"access_token": "at",
	}))
	assert.True(t, def.ValidateConnection(map[string]interface{}{
		"access_token":  "at",
		"refresh_token": "rt",
		"scope":         "read",
		"expires_at":    "2026-01-01T00:00:00Z",
	}))
	assert.False(t, def.ValidateConnection(map[string]interface{}{}))
	assert.False(t, def.ValidateConnection(map[string]interface{}{
		"access_token": "at",
		"bogus":        1,
	}))
}

func TestMockValidate(t *testing.T) {
	def := integration.NewMockOAuth2(integration.OAuth2Config{ClientID: "a", ClientSecret: "b"})
	assert.NoError(t, def.Validate())
	assert.Equal(t, "Mock OAuth2", def.Name())
	assert.Equal(t, "mock_oauth2", def.Slug())
	assert.NotEmpty(t, def.LogoURL())

	id, secret := def.ClientCredentials()
	assert.Equal(t, "a", id)
	assert.Equal(t, "b", secret)
}
