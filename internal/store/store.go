// Package store is the relational layer, SQLite through sqlx with the
// pure-Go modernc driver. Every query is tenant scoped: the (tenant_id,
// tenant_user_id) pair from the request context lands in the WHERE
// clause of each statement, so a row owned by another scope is
// indistinguishable from a missing row.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/fyrsmithlabs/beamd/internal/connection"
	"github.com/fyrsmithlabs/beamd/internal/tenant"
)

// ErrConnectionFailed is returned when the database cannot be reached or
// opened. The HTTP layer maps it to 503.
var ErrConnectionFailed = errors.New("store connection failed")

// Config holds store settings.
type Config struct {
	// DSN is the SQLite data source. ":memory:" is supported for tests.
	DSN string `koanf:"dsn"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.DSN == "" {
		c.DSN = "data/beamd.db"
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL DEFAULT '',
	connection_id  TEXT NOT NULL DEFAULT '',
	content        TEXT NOT NULL,
	tenant_id      TEXT NOT NULL,
	tenant_user_id TEXT NOT NULL,
	created_at     TIMESTAMP NOT NULL,
	updated_at     TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
	id             TEXT PRIMARY KEY,
	document_id    TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	idx            INTEGER NOT NULL,
	content        TEXT NOT NULL,
	tenant_id      TEXT NOT NULL,
	tenant_user_id TEXT NOT NULL,
	created_at     TIMESTAMP NOT NULL,
	updated_at     TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS connections (
	id             TEXT PRIMARY KEY,
	integration    TEXT NOT NULL,
	config         TEXT NOT NULL DEFAULT '{}',
	status         TEXT NOT NULL,
	tenant_id      TEXT NOT NULL,
	tenant_user_id TEXT NOT NULL,
	created_at     TIMESTAMP NOT NULL,
	updated_at     TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_tenant ON documents(tenant_id, tenant_user_id);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);
CREATE INDEX IF NOT EXISTS idx_chunks_tenant ON chunks(tenant_id, tenant_user_id);
CREATE INDEX IF NOT EXISTS idx_connections_tenant ON connections(tenant_id, tenant_user_id);
`

// Store is the SQLite-backed implementation of the connection and
// document store contracts.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// New opens the database, enables foreign keys and applies the schema.
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()

	if cfg.DSN != ":memory:" {
		if dir := filepath.Dir(cfg.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("%w: creating data directory: %v", ErrConnectionFailed, err)
			}
		}
	}

	db, err := sqlx.Open("sqlite", cfg.DSN+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	if cfg.DSN == ":memory:" {
		// Each pooled connection would otherwise get its own empty
		// in-memory database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: enabling foreign keys: %v", ErrConnectionFailed, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: applying schema: %v", ErrConnectionFailed, err)
	}

	return &Store{db: db, logger: logger.Named("store")}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks database liveness.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return nil
}

// connectionRow is the persisted form of a connection; config is stored
// as a JSON column.
type connectionRow struct {
	ID           string    `db:"id"`
	Integration  string    `db:"integration"`
	Config       string    `db:"config"`
	Status       string    `db:"status"`
	TenantID     string    `db:"tenant_id"`
	TenantUserID string    `db:"tenant_user_id"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r *connectionRow) toModel() (*connection.Connection, error) {
	cfg := map[string]interface{}{}
	if r.Config != "" {
		if err := json.Unmarshal([]byte(r.Config), &cfg); err != nil {
			return nil, fmt.Errorf("decoding connection config: %w", err)
		}
	}
	return &connection.Connection{
		ID:           r.ID,
		Integration:  r.Integration,
		Config:       cfg,
		Status:       connection.Status(r.Status),
		TenantID:     r.TenantID,
		TenantUserID: r.TenantUserID,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}, nil
}

// InsertConnection writes a new connection row.
func (s *Store) InsertConnection(ctx context.Context, conn *connection.Connection) error {
	cfg, err := json.Marshal(conn.Config)
	if err != nil {
		return fmt.Errorf("encoding connection config: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO connections (id, integration, config, status, tenant_id, tenant_user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		conn.ID, conn.Integration, string(cfg), string(conn.Status),
		conn.TenantID, conn.TenantUserID, conn.CreatedAt, conn.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting connection: %w", err)
	}
	return nil
}

// GetConnection fetches one connection within the scope in ctx.
func (s *Store) GetConnection(ctx context.Context, id string) (*connection.Connection, error) {
	scope, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	var row connectionRow
	err = s.db.GetContext(ctx, &row, `
		SELECT * FROM connections
		WHERE id = ? AND tenant_id = ? AND tenant_user_id = ?`,
		id, scope.TenantID, scope.TenantUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, connection.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying connection: %w", err)
	}
	return row.toModel()
}

// ListConnections returns all connections within the scope in ctx.
func (s *Store) ListConnections(ctx context.Context) ([]*connection.Connection, error) {
	scope, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []connectionRow
	err = s.db.SelectContext(ctx, &rows, `
		SELECT * FROM connections
		WHERE tenant_id = ? AND tenant_user_id = ?
		ORDER BY created_at`,
		scope.TenantID, scope.TenantUserID)
	if err != nil {
		return nil, fmt.Errorf("querying connections: %w", err)
	}

	out := make([]*connection.Connection, 0, len(rows))
	for i := range rows {
		conn, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, conn)
	}
	return out, nil
}

// UpdateConnection rewrites a connection row within the scope in ctx.
func (s *Store) UpdateConnection(ctx context.Context, conn *connection.Connection) error {
	scope, err := tenant.FromContext(ctx)
	if err != nil {
		return err
	}

	cfg, err := json.Marshal(conn.Config)
	if err != nil {
		return fmt.Errorf("encoding connection config: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE connections SET config = ?, status = ?, updated_at = ?
		WHERE id = ? AND tenant_id = ? AND tenant_user_id = ?`,
		string(cfg), string(conn.Status), conn.UpdatedAt,
		conn.ID, scope.TenantID, scope.TenantUserID)
	if err != nil {
		return fmt.Errorf("updating connection: %w", err)
	}
	return requireRow(res, connection.ErrNotFound)
}

// DeleteConnection removes a connection row within the scope in ctx.
func (s *Store) DeleteConnection(ctx context.Context, id string) error {
	scope, err := tenant.FromContext(ctx)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM connections
		WHERE id = ? AND tenant_id = ? AND tenant_user_id = ?`,
		id, scope.TenantID, scope.TenantUserID)
	if err != nil {
		return fmt.Errorf("deleting connection: %w", err)
	}
	return requireRow(res, connection.ErrNotFound)
}

// requireRow converts a zero-row result into notFound.
func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
