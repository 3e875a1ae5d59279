// Package main implements the beamd daemon: a multi-tenant document
// memory backend with pluggable integrations and vector search.
//
// Configuration is loaded from a YAML file plus environment overrides.
//
// Usage:
//
//	# Start with defaults
//	beamd serve
//
//	# Point at a config file
//	beamd serve --config /etc/beamd/beamd.yaml
//
//	# Override via environment
//	SERVER_PORT=9090 beamd serve
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/beamd/internal/config"
	"github.com/fyrsmithlabs/beamd/internal/connection"
	"github.com/fyrsmithlabs/beamd/internal/document"
	"github.com/fyrsmithlabs/beamd/internal/embeddings"
	"github.com/fyrsmithlabs/beamd/internal/events"
	beamdhttp "github.com/fyrsmithlabs/beamd/internal/http"
	"github.com/fyrsmithlabs/beamd/internal/integration"
	"github.com/fyrsmithlabs/beamd/internal/logging"
	"github.com/fyrsmithlabs/beamd/internal/store"
	"github.com/fyrsmithlabs/beamd/internal/telemetry"
	"github.com/fyrsmithlabs/beamd/internal/token"
	"github.com/fyrsmithlabs/beamd/internal/vectorstore"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "beamd",
	Short:   "Document memory backend with pluggable integrations",
	Version: fmt.Sprintf("%s (%s)", version, gitCommit),
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the beamd HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "beamd.yaml", "path to configuration file")
	rootCmd.AddCommand(serveCmd)
}

// run initializes every dependency, starts the HTTP server and blocks
// until the context is cancelled.
func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting beamd",
		zap.String("version", version),
		zap.String("commit", gitCommit),
	)

	tel, err := telemetry.Setup(ctx, cfg.Observability.ServiceName, cfg.Observability.OTLPEndpoint, cfg.Observability.Enabled)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	db, err := store.New(cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() { _ = db.Close() }()

	vectors, err := vectorstore.New(ctx, cfg.VectorStore, logger)
	if err != nil {
		return fmt.Errorf("opening vector store: %w", err)
	}
	defer func() { _ = vectors.Close() }()

	embedder, err := embeddings.New(cfg.Embeddings)
	if err != nil {
		return fmt.Errorf("initializing embeddings: %w", err)
	}

	splitter, err := document.NewSplitter(cfg.Splitter)
	if err != nil {
		return fmt.Errorf("initializing splitter: %w", err)
	}

	publisher, err := events.New(cfg.Events, logger)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer publisher.Close()

	registry, err := integration.FromConfig(cfg.Integrations, integration.Factories())
	if err != nil {
		return fmt.Errorf("building integration registry: %w", err)
	}
	logger.Info("integrations registered", zap.Strings("slugs", registry.Slugs()))

	issuer, err := token.NewIssuer(cfg.Auth.Token)
	if err != nil {
		return fmt.Errorf("initializing token issuer: %w", err)
	}

	connections := connection.NewService(db, registry, cfg.Auth.RedirectURI, logger)
	documents := document.NewService(db, vectors, embedder, splitter, publisher, logger)

	srv, err := beamdhttp.NewServer(beamdhttp.Config{
		Host:    cfg.Server.Host,
		Port:    cfg.Server.Port,
		APIKeys: cfg.Auth.APIKeys,
	}, issuer, registry, connections, documents, db, logger)
	if err != nil {
		return fmt.Errorf("building server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return <-errCh
}
