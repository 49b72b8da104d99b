// Package main implements a small producer that enqueues a bookmark for
// enrichment. It is meant for operators replaying bookmarks and for local
// testing of the worker.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/phrazzld/bookmark-enricher/internal/platform/logger"
	"github.com/phrazzld/bookmark-enricher/internal/platform/pgmq"
	"github.com/phrazzld/bookmark-enricher/internal/queue"
	"github.com/phrazzld/bookmark-enricher/internal/queue/handlers"
)

type options struct {
	databaseURL  string
	queueName    string
	bookmarkID   uuid.UUID
	userID       uuid.UUID
	sourceURL    string
	collectionID *uuid.UUID
	priority     string
	delay        time.Duration
}

func main() {
	log := logger.New(os.Stderr, "info")

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Error("invalid arguments", "error", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, opts.databaseURL)
	if err != nil {
		log.Error("failed to open database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// visibility only matters when claiming
	gateway := pgmq.NewGateway(pool, 0)
	if err := enqueue(ctx, gateway, opts, log); err != nil {
		log.Error("failed to enqueue bookmark", "error", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, output io.Writer) (options, error) {
	fs := flag.NewFlagSet("enqueue", flag.ContinueOnError)
	fs.SetOutput(output)

	var (
		opts       options
		bookmarkID string
		userID     string
		collection string
	)
	fs.StringVar(&opts.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
	fs.StringVar(&opts.queueName, "queue", "bookmarks", "Queue to send to")
	fs.StringVar(&bookmarkID, "bookmark", "", "Bookmark ID (required)")
	fs.StringVar(&userID, "user", "", "Owning user ID (required)")
	fs.StringVar(&opts.sourceURL, "url", "", "Bookmark source URL")
	fs.StringVar(&collection, "collection", "", "Collection ID the bookmark was saved into")
	fs.StringVar(&opts.priority, "priority", handlers.PriorityMedium, "Priority hint: low, medium or high")
	fs.DurationVar(&opts.delay, "delay", 0, "Delay before the message becomes visible")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	var err error
	if opts.bookmarkID, err = uuid.Parse(bookmarkID); err != nil {
		return options{}, fmt.Errorf("-bookmark: %w", err)
	}
	if opts.userID, err = uuid.Parse(userID); err != nil {
		return options{}, fmt.Errorf("-user: %w", err)
	}
	if collection != "" {
		id, err := uuid.Parse(collection)
		if err != nil {
			return options{}, fmt.Errorf("-collection: %w", err)
		}
		opts.collectionID = &id
	}
	if opts.databaseURL == "" {
		return options{}, errors.New("-database-url or DATABASE_URL is required")
	}
	if !handlers.ValidPriority(opts.priority) {
		return options{}, fmt.Errorf("-priority: unknown value %q", opts.priority)
	}
	if opts.delay < 0 {
		return options{}, errors.New("-delay cannot be negative")
	}
	return opts, nil
}

func enqueue(ctx context.Context, gateway queue.Gateway, opts options, log *slog.Logger) error {
	payload := handlers.NewBookmarkMessage(opts.bookmarkID, opts.userID, opts.sourceURL, opts.collectionID, "cli")
	if opts.priority != "" {
		payload.Metadata.Priority = opts.priority
	}

	id, err := gateway.Send(ctx, opts.queueName, payload, opts.delay)
	if err != nil {
		return err
	}
	log.Info("bookmark enqueued",
		"queue", opts.queueName,
		"msg_id", id,
		"bookmark_id", opts.bookmarkID,
		"priority", payload.Metadata.Priority,
		"delay", opts.delay)
	return nil
}
