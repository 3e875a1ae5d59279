// Package http is the beamd API surface: an echo server exposing token
// minting, integrations, connections and the document pipeline.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/beamd/internal/connection"
	"github.com/fyrsmithlabs/beamd/internal/document"
	"github.com/fyrsmithlabs/beamd/internal/integration"
	"github.com/fyrsmithlabs/beamd/internal/token"
)

// Config holds HTTP server settings.
type Config struct {
	Host string
	Port int

	// APIKeys gate the token endpoint.
	APIKeys []string
}

// Pinger reports backing-store liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires the handlers to their services.
type Server struct {
	echo   *echo.Echo
	logger *zap.Logger
	cfg    Config

	issuer      *token.Issuer
	registry    *integration.Registry
	connections *connection.Service
	documents   *document.Service
	pinger      Pinger
}

// NewServer creates the API server.
func NewServer(cfg Config, issuer *token.Issuer, registry *integration.Registry, connections *connection.Service, documents *document.Service, pinger Pinger, logger *zap.Logger) (*Server, error) {
	if issuer == nil {
		return nil, fmt.Errorf("token issuer is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("integration registry is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:        e,
		logger:      logger.Named("http"),
		cfg:         cfg,
		issuer:      issuer,
		registry:    registry,
		connections: connections,
		documents:   documents,
		pinger:      pinger,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.echo.POST("/token", s.handleToken, s.requireAPIKey)

	api := s.echo.Group("", s.requireBearer)

	api.GET("/integrations", s.handleListIntegrations)

	api.POST("/connections", s.handleCreateConnection)
	api.GET("/connections", s.handleListConnections)
	api.GET("/connections/:id", s.handleGetConnection)
	api.PUT("/connections/:id", s.handleUpdateConnection)
	api.DELETE("/connections/:id", s.handleDeleteConnection)
	api.GET("/connections/:id/auth_url", s.handleConnectionAuthURL)
	api.POST("/connections/:id/complete", s.handleCompleteConnection)
	api.POST("/connections/:id/disconnect", s.handleDisconnectConnection)
	api.POST("/connections/:id/sync", s.handleSyncConnection)

	api.POST("/documents", s.handleCreateDocument)
	api.GET("/documents", s.handleListDocuments)
	api.POST("/documents/query", s.handleQueryDocuments)
	api.GET("/documents/:id", s.handleGetDocument)
	api.DELETE("/documents/:id", s.handleDeleteDocument)
	api.GET("/documents/:id/chunks", s.handleListChunks)
	api.POST("/documents/:id/chunks", s.handleCreateChunk)

	api.GET("/chunks/:id", s.handleGetChunk)
	api.PUT("/chunks/:id", s.handleUpdateChunk)
	api.DELETE("/chunks/:id", s.handleDeleteChunk)
}

// Echo exposes the underlying router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.logger.Info("http server listening", zap.String("addr", addr))

	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	if s.pinger != nil {
		if err := s.pinger.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
