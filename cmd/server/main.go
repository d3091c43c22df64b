package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/tablebrowser/internal/config"
	"github.com/JonMunkholm/tablebrowser/internal/core"
	"github.com/JonMunkholm/tablebrowser/internal/engine"
	"github.com/JonMunkholm/tablebrowser/internal/logging"
	"github.com/JonMunkholm/tablebrowser/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	closeLog := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.SeqURL)
	defer closeLog()

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"engine_max_conns", cfg.Engine.MaxConns,
		"export_max_concurrent", cfg.Export.MaxConcurrent,
		"mutation_sync", cfg.Mutation.Sync,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	// Connect to the engine
	ctx := context.Background()
	eng, err := engine.Open(ctx, cfg.EngineOptions())
	if err != nil {
		slog.Error("failed to connect to engine", "error", err)
		closeLog()
		os.Exit(1)
	}
	defer eng.Close()

	driver, _ := engine.DriverFor(cfg.Engine.URL)
	slog.Info("connected to engine", "driver", driver, "database", engine.Database(cfg.Engine.URL))

	service := core.NewService(eng, cfg.Service())
	server := web.NewServer(service, cfg)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let running exports finish writing their files
		if status := service.Exports().Status(); status.Active > 0 {
			slog.Info("waiting for exports to complete", "active", status.Active)
			if err := service.Exports().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("exports did not complete in time", "error", err)
			} else {
				slog.Info("all exports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		return
	}
	<-done
	slog.Info("server stopped")
}
