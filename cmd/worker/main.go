// Package main implements the bookmark enrichment worker. It consumes
// bookmark messages from the durable queue, runs the enrichment workflow
// for each, and serves health, metrics and progress streams over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/phrazzld/bookmark-enricher/internal/config"
	"github.com/phrazzld/bookmark-enricher/internal/platform/logger"
	"github.com/phrazzld/bookmark-enricher/internal/platform/postgres"
)

func main() {
	migrateCmd := flag.String("migrate", "",
		"Run a database migration command (up, down, status, version, redo) and exit")
	flag.Parse()

	if err := run(context.Background(), *migrateCmd); err != nil {
		slog.Error("worker exited with error", "error", err)
		os.Exit(1)
	}
}

// run loads configuration, sets up logging and the database pool, then
// either executes a migration command or runs the worker until signalled.
func run(ctx context.Context, migrateCmd string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("worker configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"queues", cfg.Queue.Names,
		"queue_backend", cfg.Queue.Backend,
		"image_backend", cfg.Images.Backend)

	pool, err := setupDatabase(ctx, cfg.Database, log)
	if err != nil {
		return err
	}

	if migrateCmd != "" {
		defer pool.Close()
		return postgres.Migrate(ctx, pool, migrateCmd, log)
	}

	app, err := newApplication(ctx, cfg, log, pool)
	if err != nil {
		pool.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}
