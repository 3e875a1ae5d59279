package integration

import (
	"context"
	"net/url"
)

// MockOAuth2 is an OAuth2 integration with canned exchange results and a
// fixed document set. It backs local development and tests.
type MockOAuth2 struct {
	Flow

	cfg OAuth2Config
}

// NewMockOAuth2 creates a mock definition from instance configuration.
func NewMockOAuth2(cfg OAuth2Config) *MockOAuth2 {
	return &MockOAuth2{
		Flow: Flow{
			Endpoints: Endpoints{
				APIRoot:               "https://mock-integration.com",
				AuthorizationEndpoint: "/authorize",
				TokenEndpoint:         "/token",
			},
		},
		cfg: cfg,
	}
}

func (m *MockOAuth2) Name() string    { return "Mock OAuth2" }
func (m *MockOAuth2) Slug() string    { return "mock_oauth2" }
func (m *MockOAuth2) LogoURL() string { return "https://placekitten.com/g/400/400" }

func (m *MockOAuth2) Validate() error {
	if err := validateAttrs(m.Name(), m.Slug()); err != nil {
		return err
	}
	return m.Endpoints.Validate()
}

func (m *MockOAuth2) ConfigModel() interface{}     { return &OAuth2Config{} }
func (m *MockOAuth2) ConnectionModel() interface{} { return &OAuth2Connection{} }

func (m *MockOAuth2) ValidateConnection(cfg map[string]interface{}) bool {
	var model OAuth2Connection
	return DecodeStrict(cfg, &model) == nil
}

func (m *MockOAuth2) ClientCredentials() (string, string) {
	return m.cfg.ClientID, m.cfg.ClientSecret
}

func (m *MockOAuth2) AuthURL(clientID, redirectURI string, extra url.Values) (string, error) {
	return m.Flow.AuthURL(clientID, redirectURI, extra)
}

// ExchangeCode returns a canned token without any network call.
func (m *MockOAuth2) ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI string) (*Token, error) {
	return &Token{
		AccessToken:  "mock-access-token",
		RefreshToken: "mock-refresh-token",
	}, nil
}

// Pull returns a fixed document set.
func (m *MockOAuth2) Pull(ctx context.Context, conn map[string]interface{}) (*PullResult, error) {
	return &PullResult{Documents: []string{"Document 1", "Document 2", "Document 3"}}, nil
}
