package connection

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/beamd/internal/integration"
	"github.com/fyrsmithlabs/beamd/internal/tenant"
)

// Service drives the connection lifecycle on top of a Store and the
// integration registry.
type Service struct {
	store    Store
	registry *integration.Registry
	logger   *zap.Logger

	// redirectURI is the OAuth2 callback this deployment registered with
	// its providers.
	redirectURI string

	now func() time.Time
}

// NewService creates a connection service.
func NewService(store Store, registry *integration.Registry, redirectURI string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:       store,
		registry:    registry,
		logger:      logger.Named("connection"),
		redirectURI: redirectURI,
		now:         time.Now,
	}
}

// Create registers a new connection for the scope in ctx.
//
// OAuth2 integrations start PENDING with whatever config was supplied;
// credentials arrive later through CompleteOAuth2. Everything else must
// present a config that already satisfies the integration's connection
// model and starts CONNECTED.
func (s *Service) Create(ctx context.Context, slug string, cfg map[string]interface{}) (*Connection, error) {
	scope, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	def, err := s.registry.Get(slug)
	if err != nil {
		return nil, err
	}

	status := StatusConnected
	if _, ok := def.(integration.OAuth2); ok {
		// Credentials only arrive through the code exchange. Anything
		// the caller supplies up front is discarded.
		status = StatusPending
		cfg = map[string]interface{}{}
	} else if !def.ValidateConnection(cfg) {
		return nil, fmt.Errorf("%w: config does not satisfy %q", ErrInvalid, slug)
	}

	if cfg == nil {
		cfg = map[string]interface{}{}
	}

	now := s.now().UTC()
	conn := &Connection{
		ID:           uuid.NewString(),
		Integration:  slug,
		Config:       cfg,
		Status:       status,
		TenantID:     scope.TenantID,
		TenantUserID: scope.TenantUserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.InsertConnection(ctx, conn); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreationFailed, err)
	}

	s.logger.Info("connection created",
		zap.String("connection_id", conn.ID),
		zap.String("integration", slug),
		zap.String("status", string(status)))
	return conn, nil
}

// Get fetches one connection within the caller's scope.
func (s *Service) Get(ctx context.Context, id string) (*Connection, error) {
	if _, err := tenant.FromContext(ctx); err != nil {
		return nil, err
	}
	return s.store.GetConnection(ctx, id)
}

// List returns all connections within the caller's scope.
func (s *Service) List(ctx context.Context) ([]*Connection, error) {
	if _, err := tenant.FromContext(ctx); err != nil {
		return nil, err
	}
	return s.store.ListConnections(ctx)
}

// AuthURL composes the provider authorization URL for a pending OAuth2
// connection.
func (s *Service) AuthURL(ctx context.Context, id string) (string, error) {
	conn, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	def, err := s.registry.Get(conn.Integration)
	if err != nil {
		return "", err
	}
	flow, ok := def.(integration.OAuth2)
	if !ok {
		return "", fmt.Errorf("%w: %q is not an oauth2 integration", ErrInvalid, conn.Integration)
	}

	clientID, _ := flow.ClientCredentials()
	return flow.AuthURL(clientID, s.redirectURI, url.Values{"state": {conn.ID}})
}

// CompleteOAuth2 trades the authorization code for a token and moves the
// connection to CONNECTED with the token as its config.
func (s *Service) CompleteOAuth2(ctx context.Context, id, code string) (*Connection, error) {
	conn, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	def, err := s.registry.Get(conn.Integration)
	if err != nil {
		return nil, err
	}
	flow, ok := def.(integration.OAuth2)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an oauth2 integration", ErrInvalid, conn.Integration)
	}

	clientID, clientSecret := flow.ClientCredentials()
	tok, err := flow.ExchangeCode(ctx, clientID, clientSecret, code, s.redirectURI)
	if err != nil {
		return nil, err
	}

	conn.Config = tok.Map()
	conn.Status = StatusConnected
	conn.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateConnection(ctx, conn); err != nil {
		return nil, err
	}

	s.logger.Info("connection authorized",
		zap.String("connection_id", conn.ID),
		zap.String("integration", conn.Integration))
	return conn, nil
}

// UpdateConfig replaces a connection's config after revalidating it
// against the integration's connection model. Status is untouched.
func (s *Service) UpdateConfig(ctx context.Context, id string, cfg map[string]interface{}) (*Connection, error) {
	conn, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	def, err := s.registry.Get(conn.Integration)
	if err != nil {
		return nil, err
	}
	if !def.ValidateConnection(cfg) {
		return nil, fmt.Errorf("%w: config does not satisfy %q", ErrInvalid, conn.Integration)
	}

	conn.Config = cfg
	conn.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateConnection(ctx, conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// Disconnect marks a connection DISCONNECTED without deleting its record.
func (s *Service) Disconnect(ctx context.Context, id string) (*Connection, error) {
	conn, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	conn.Status = StatusDisconnected
	conn.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateConnection(ctx, conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// Delete removes a connection within the caller's scope.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := tenant.FromContext(ctx); err != nil {
		return err
	}
	if err := s.store.DeleteConnection(ctx, id); err != nil {
		return err
	}
	s.logger.Info("connection deleted", zap.String("connection_id", id))
	return nil
}

// Pull fetches documents through a CONNECTED connection's integration.
func (s *Service) Pull(ctx context.Context, id string) (*integration.PullResult, error) {
	conn, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if conn.Status != StatusConnected {
		return nil, fmt.Errorf("%w: connection %s is %s", ErrInvalid, conn.ID, conn.Status)
	}

	def, err := s.registry.Get(conn.Integration)
	if err != nil {
		return nil, err
	}
	return def.Pull(ctx, conn.Config)
}
