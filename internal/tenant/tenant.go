// Package tenant carries the (tenant_id, tenant_user_id) scope that every
// persisted entity is filtered by.
//
// Security: scope extraction is fail closed. Handlers place a validated
// Scope in the request context; storage layers read it back and refuse to
// operate without one. A row owned by another scope is indistinguishable
// from a missing row.
package tenant

import (
	"context"
	"errors"
)

var (
	// ErrMissingScope is returned when tenant scope is absent from context.
	ErrMissingScope = errors.New("tenant scope missing from context")

	// ErrInvalidScope is returned when a scope has empty identifiers.
	ErrInvalidScope = errors.New("invalid tenant scope")
)

// scopeContextKey is the context key for Scope.
type scopeContextKey struct{}

// Scope identifies the tenant and the user within that tenant.
type Scope struct {
	TenantID     string
	TenantUserID string
}

// Validate checks that both identifiers are present.
func (s Scope) Validate() error {
	if s.TenantID == "" || s.TenantUserID == "" {
		return ErrInvalidScope
	}
	return nil
}

// ContextWithScope adds a Scope to a context.
func ContextWithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// FromContext extracts the Scope from a context.
// Returns ErrMissingScope if not present - fail closed.
func FromContext(ctx context.Context) (Scope, error) {
	val := ctx.Value(scopeContextKey{})
	if val == nil {
		return Scope{}, ErrMissingScope
	}
	scope, ok := val.(Scope)
	if !ok {
		return Scope{}, ErrMissingScope
	}
	if err := scope.Validate(); err != nil {
		return Scope{}, err
	}
	return scope, nil
}

// Metadata returns the scope as payload fields for vector points.
func (s Scope) Metadata() map[string]interface{} {
	return map[string]interface{}{
		"tenant_id":      s.TenantID,
		"tenant_user_id": s.TenantUserID,
	}
}

// Filter returns the scope as query filter conditions.
func (s Scope) Filter() map[string]interface{} {
	return map[string]interface{}{
		"tenant_id":      s.TenantID,
		"tenant_user_id": s.TenantUserID,
	}
}
