// Package connection manages per-tenant integration connections through
// their lifecycle: created, authorized, disconnected.
package connection

import (
	"context"
	"errors"
	"time"
)

// Status is the lifecycle state of a connection.
type Status string

const (
	// StatusPending means an OAuth2 authorization is still outstanding.
	StatusPending Status = "PENDING"
	// StatusConnected means credentials are in place.
	StatusConnected Status = "CONNECTED"
	// StatusDisconnected means credentials were revoked or abandoned.
	StatusDisconnected Status = "DISCONNECTED"
)

var (
	// ErrNotFound is returned when a connection does not exist within the
	// caller's tenant scope. Rows owned by another scope look identical
	// to missing rows.
	ErrNotFound = errors.New("connection not found")

	// ErrInvalid is returned when a connection config fails the
	// integration's connection model.
	ErrInvalid = errors.New("connection config invalid")

	// ErrCreationFailed is returned when the store refuses a write.
	ErrCreationFailed = errors.New("connection creation failed")
)

// Connection binds a tenant user to an integration instance.
type Connection struct {
	ID          string                 `db:"id" json:"id"`
	Integration string                 `db:"integration" json:"integration"`
	Config      map[string]interface{} `db:"-" json:"config"`
	Status      Status                 `db:"status" json:"status"`

	TenantID     string `db:"tenant_id" json:"tenant_id"`
	TenantUserID string `db:"tenant_user_id" json:"tenant_user_id"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Store persists connections. Implementations filter every operation by
// the tenant scope carried in ctx and return ErrNotFound for rows outside
// it.
type Store interface {
	InsertConnection(ctx context.Context, conn *Connection) error
	GetConnection(ctx context.Context, id string) (*Connection, error)
	ListConnections(ctx context.Context) ([]*Connection, error)
	UpdateConnection(ctx context.Context, conn *Connection) error
	DeleteConnection(ctx context.Context, id string) error
}
