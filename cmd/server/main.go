package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HillPhelmuth/WhiteBoard/internal/logging"
	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog"
	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog/api"
	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment
	serverConfig, err := config.Load(config.WithEnv())
	if err != nil {
		return fmt.Errorf("failed to load server configuration: %w", err)
	}

	logger := logging.New(os.Stdout, serverConfig.Environment, serverConfig.LogLevel)
	logging.Setup(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Build service from configuration
	svc, cleanup, err := serverConfig.BuildService(ctx, imagecatalog.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer cleanup()

	handler := api.NewImageHandler(svc, logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", serverConfig.Port),
		Handler:           handler.Router(corsConfig(serverConfig)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Image catalog server starting",
			"port", serverConfig.Port,
			"env", serverConfig.Environment,
			"database", serverConfig.DatabaseType,
			"storage", serverConfig.Storage.Type)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("Shutting down server...")

	// Create a deadline to wait for
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exiting")
	return nil
}

// corsConfig allows the configured origins, or every origin in development
// when none are configured.
func corsConfig(cfg *config.ServerConfig) api.CORSConfig {
	if len(cfg.CORSAllowedOrigins) > 0 {
		return api.CORSConfig{Enabled: true, AllowedOrigins: cfg.CORSAllowedOrigins, MaxAge: 300}
	}
	if cfg.Environment == "development" {
		return api.CORSConfig{Enabled: true, AllowedOrigins: []string{"*"}, MaxAge: 300}
	}
	return api.CORSConfig{}
}
