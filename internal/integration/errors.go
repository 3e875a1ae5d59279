package integration

import "errors"

// Sentinel errors for integration and registry operations.
var (
	// ErrNotFound is returned when a slug does not resolve in the registry.
	ErrNotFound = errors.New("integration not found")

	// ErrAlreadyExists is returned when registering a slug that is taken.
	ErrAlreadyExists = errors.New("integration already exists")

	// ErrInvalid is returned when a Definition fails its class-level checks.
	ErrInvalid = errors.New("integration definition invalid")

	// ErrConfigInvalid is returned when a configuration block fails schema
	// validation against an integration's config model.
	ErrConfigInvalid = errors.New("integration config invalid")

	// ErrExchangeFailed is returned when the upstream OAuth2 provider
	// rejects a token exchange. The wrapped message carries the provider's
	// error description when present.
	ErrExchangeFailed = errors.New("oauth2 token exchange failed")

	// ErrRefreshNotImplemented is returned by the base Flow for refresh.
	// Silently echoing a stale token would mask real auth failures, so each
	// concrete integration must supply its own refresh implementation.
	ErrRefreshNotImplemented = errors.New("oauth2 token refresh not implemented")
)
