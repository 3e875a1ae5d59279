package integration

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// upstreamTimeout bounds every call to an upstream provider. No retries:
// a single attempt is made and failures propagate to the caller.
const upstreamTimeout = 30 * time.Second

// OAuth2 is the composable capability implemented by OAuth2-based
// integrations, alongside Definition.
type OAuth2 interface {
	// ClientCredentials returns the instance-level OAuth client id and
	// secret this definition was configured with.
	ClientCredentials() (clientID, clientSecret string)

	// AuthURL composes the authorization-request URL.
	AuthURL(clientID, redirectURI string, extra url.Values) (string, error)

	// ExchangeCode trades an authorization code for a token.
	ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI string) (*Token, error)

	// RefreshToken trades a refresh token for a fresh token.
	RefreshToken(ctx context.Context, clientID, clientSecret string, tok *Token) (*Token, error)
}

// Endpoints holds the OAuth2 provider endpoints of an integration.
type Endpoints struct {
	APIRoot               string
	AuthorizationEndpoint string
	TokenEndpoint         string
}

// Validate checks that all three endpoints are set.
func (e Endpoints) Validate() error {
	if e.APIRoot == "" || e.AuthorizationEndpoint == "" || e.TokenEndpoint == "" {
		return fmt.Errorf("%w: oauth2 endpoints incomplete", ErrInvalid)
	}
	return nil
}

// Token is the credential record produced by a code exchange.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	// ExpiresAt is UTC ISO-8601, set only when the provider returned
	// expires_in.
	ExpiresAt string `json:"expires_at,omitempty"`
}

// Map returns the token as a connection config payload.
func (t *Token) Map() map[string]interface{} {
	m := map[string]interface{}{"access_token": t.AccessToken}
	if t.RefreshToken != "" {
		m["refresh_token"] = t.RefreshToken
	}
	if t.Scope != "" {
		m["scope"] = t.Scope
	}
	if t.ExpiresAt != "" {
		m["expires_at"] = t.ExpiresAt
	}
	return m
}

// OAuth2Config is the instance-level configuration model shared by
// OAuth2-based integrations. Slug optionally names the registry entry,
// letting one integration type register under several slugs.
type OAuth2Config struct {
	Slug         string `json:"slug,omitempty"`
	ClientID     string `json:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret" validate:"required"`
}

// OAuth2Connection is the per-tenant credential model shared by
// OAuth2-based integrations.
type OAuth2Connection struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	ExpiresAt    string `json:"expires_at,omitempty"`
}

// Flow is the OAuth2 flow engine embedded by OAuth2-based integrations.
// Concrete integrations override AuthURL to merge provider-specific query
// parameters before delegating back to Flow.AuthURL.
type Flow struct {
	Endpoints Endpoints

	// HTTPClient is used for token exchanges. Defaults to a rate-limited
	// client with upstreamTimeout.
	HTTPClient *http.Client
}

// httpClient returns the configured client or a shared default.
func (f *Flow) httpClient() *http.Client {
	if f.HTTPClient != nil {
		return f.HTTPClient
	}
	return defaultUpstreamClient
}

// AuthURL composes api_root + authorization_endpoint with response_type,
// client_id, redirect_uri and any extra query parameters.
func (f *Flow) AuthURL(clientID, redirectURI string, extra url.Values) (string, error) {
	if err := f.Endpoints.Validate(); err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", clientID)
	q.Set("redirect_uri", redirectURI)
	for key, vals := range extra {
		for _, v := range vals {
			q.Set(key, v)
		}
	}

	return f.Endpoints.APIRoot + f.Endpoints.AuthorizationEndpoint + "?" + q.Encode(), nil
}

// ExchangeCode POSTs the authorization code to the token endpoint using
// HTTP Basic auth and a JSON body, per the providers this engine targets.
func (f *Flow) ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI string) (*Token, error) {
	body := map[string]string{
		"grant_type":   "authorization_code",
		"code":         code,
		"redirect_uri": redirectURI,
	}
	return f.postToken(ctx, clientID, clientSecret, body)
}

// RefreshToken is integration-specific; the base engine refuses rather
// than silently returning stale credentials.
func (f *Flow) RefreshToken(ctx context.Context, clientID, clientSecret string, tok *Token) (*Token, error) {
	return nil, ErrRefreshNotImplemented
}

// postToken performs the token-endpoint POST shared by exchange and
// refresh transports.
func (f *Flow) postToken(ctx context.Context, clientID, clientSecret string, body map[string]string) (*Token, error) {
	if err := f.Endpoints.Validate(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding token request: %w", err)
	}

	endpoint := f.Endpoints.APIRoot + f.Endpoints.TokenEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("building token request: %w", err)
	}

	auth := base64.StdEncoding.EncodeToString([]byte(clientID + ":" + clientSecret))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+auth)

	resp, err := f.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrExchangeFailed, err)
	}

	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		data = nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s", ErrExchangeFailed, upstreamErrorDetail(data, raw))
	}

	tok := &Token{
		AccessToken:  stringField(data, "access_token"),
		RefreshToken: stringField(data, "refresh_token"),
		Scope:        stringField(data, "scope"),
	}
	if expiresIn, ok := data["expires_in"]; ok {
		if secs, ok := asSeconds(expiresIn); ok {
			tok.ExpiresAt = time.Now().UTC().Add(time.Duration(secs) * time.Second).Format(time.RFC3339)
		}
	}
	return tok, nil
}

// upstreamErrorDetail picks error_description, then error, then the raw
// body, mirroring what providers actually populate.
func upstreamErrorDetail(data map[string]interface{}, raw []byte) string {
	if s := stringField(data, "error_description"); s != "" {
		return s
	}
	if s := stringField(data, "error"); s != "" {
		return s
	}
	return string(raw)
}

func stringField(data map[string]interface{}, key string) string {
	if data == nil {
		return ""
	}
	s, _ := data[key].(string)
	return s
}

func asSeconds(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		// Some providers send "3600".
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// defaultUpstreamClient rate-limits calls to upstream providers. A single
// shared limiter is deliberate: one process should not hammer a provider
// across integrations.
var defaultUpstreamClient = &http.Client{
	Timeout: upstreamTimeout,
	Transport: &limitedTransport{
		limiter: rate.NewLimiter(rate.Limit(10), 20),
		base:    http.DefaultTransport,
	},
}

// limitedTransport applies a token-bucket limit before delegating.
type limitedTransport struct {
	limiter *rate.Limiter
	base    http.RoundTripper
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}
