// Package token issues and verifies the bearer tokens that scope API
// access to a tenant user.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fyrsmithlabs/beamd/internal/tenant"
)

// DefaultTTL is how long an issued token stays valid.
const DefaultTTL = 24 * time.Hour

var (
	// ErrExpired means the token was well-formed but past its expiry.
	ErrExpired = errors.New("token expired")
	// ErrInvalid means the token failed signature or claim checks.
	ErrInvalid = errors.New("token invalid")
)

// Config holds token signing settings.
type Config struct {
	// Secret signs tokens with HMAC-SHA256. Required.
	Secret string `koanf:"secret"`
	// TTL is the token lifetime. Zero means DefaultTTL.
	TTL time.Duration `koanf:"ttl"`
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.Secret == "" {
		return errors.New("token secret is required")
	}
	return nil
}

// claims carries the tenant scope inside the JWT.
type claims struct {
	TenantID     string `json:"tenant_id"`
	TenantUserID string `json:"tenant_user_id"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies tenant-scoped tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewIssuer creates an issuer from config.
func NewIssuer(cfg Config) (*Issuer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue signs a token carrying the given scope.
func (i *Issuer) Issue(scope tenant.Scope) (string, error) {
	if err := scope.Validate(); err != nil {
		return "", err
	}

	now := i.now().UTC()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		TenantID:     scope.TenantID,
		TenantUserID: scope.TenantUserID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	})

	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify parses and checks a token, returning the scope it carries.
// Expired tokens fail with ErrExpired, everything else with ErrInvalid.
func (i *Issuer) Verify(raw string) (tenant.Scope, error) {
	var parsed claims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return tenant.Scope{}, fmt.Errorf("%w: %v", ErrExpired, err)
		}
		return tenant.Scope{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	scope := tenant.Scope{TenantID: parsed.TenantID, TenantUserID: parsed.TenantUserID}
	if err := scope.Validate(); err != nil {
		return tenant.Scope{}, fmt.Errorf("%w: missing tenant claims", ErrInvalid)
	}
	return scope, nil
}
