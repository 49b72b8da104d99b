package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	gpubsub "cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/phrazzld/bookmark-enricher/internal/api"
	"github.com/phrazzld/bookmark-enricher/internal/categorize"
	"github.com/phrazzld/bookmark-enricher/internal/config"
	"github.com/phrazzld/bookmark-enricher/internal/events"
	"github.com/phrazzld/bookmark-enricher/internal/generation"
	"github.com/phrazzld/bookmark-enricher/internal/metrics"
	"github.com/phrazzld/bookmark-enricher/internal/platform/fetch"
	"github.com/phrazzld/bookmark-enricher/internal/platform/gcs"
	"github.com/phrazzld/bookmark-enricher/internal/platform/gemini"
	"github.com/phrazzld/bookmark-enricher/internal/platform/pgmq"
	"github.com/phrazzld/bookmark-enricher/internal/platform/postgres"
	"github.com/phrazzld/bookmark-enricher/internal/platform/pubsub"
	"github.com/phrazzld/bookmark-enricher/internal/queue"
	"github.com/phrazzld/bookmark-enricher/internal/queue/handlers"
	"github.com/phrazzld/bookmark-enricher/internal/store"
	"github.com/phrazzld/bookmark-enricher/internal/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// application holds the worker's long-lived dependencies so they can be
// started together and released in order on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	pool   *pgxpool.Pool

	registry *prometheus.Registry
	bus      *events.Bus
	gateway  queue.Gateway

	// Optional cloud clients, nil unless configured
	pubsubClient  *gpubsub.Client
	pubsubSink    *pubsub.Sink
	storageClient *storage.Client

	enricher  *workflow.Processor
	processor *queue.Processor
	router    http.Handler
}

// newApplication wires stores, the LLM provider, the event bus and the
// queue processor. pool may only be nil when the memory queue backend is
// used and no handler touches the database, as in tests.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, pool *pgxpool.Pool) (*application, error) {
	app := &application{
		config:   cfg,
		logger:   logger,
		pool:     pool,
		registry: prometheus.NewRegistry(),
	}
	initialized := false
	defer func() {
		if !initialized {
			app.closeClients(context.Background())
		}
	}()

	if err := app.registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register go collector: %w", err)
	}

	if err := app.setupEvents(ctx); err != nil {
		return nil, err
	}

	imageStore, err := app.setupImageStore(ctx)
	if err != nil {
		return nil, err
	}

	provider, err := gemini.NewProvider(ctx, logger, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}
	limited := generation.NewRateLimited(provider, cfg.LLM.RequestsPerSecond, cfg.LLM.Burst)
	logger.Info("LLM provider initialized",
		"model", cfg.LLM.ModelName,
		"requests_per_second", cfg.LLM.RequestsPerSecond)

	fetcher := fetch.NewHTTPFetcher(fetch.Config{
		Timeout:      cfg.Images.FetchTimeout(),
		MaxBytes:     cfg.Images.MaxBytes,
		AllowPrivate: cfg.Images.AllowPrivateHosts,
	}, logger)

	categorizer := categorize.NewCategorizer(limited, postgres.NewPostgresCategoryStore(pool), logger,
		categorize.WithModel(cfg.LLM.ModelName),
		categorize.WithThreshold(cfg.LLM.CategoryThreshold))

	app.enricher, err = workflow.NewProcessor(workflow.Dependencies{
		Bookmarks:   postgres.NewPostgresBookmarkStore(pool),
		Images:      imageStore,
		Provider:    limited,
		Fetcher:     fetcher,
		Categorizer: categorizer,
		Publisher:   app.bus,
	}, workflow.Config{
		Model:            cfg.LLM.ModelName,
		FetchConcurrency: cfg.Images.FetchConcurrency,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create enrichment workflow: %w", err)
	}

	if err := app.setupQueue(); err != nil {
		return nil, err
	}

	app.router = api.NewRouter(api.RouterConfig{
		Logger:   logger,
		Health:   app.healthChecks(),
		Gatherer: app.registry,
		Events:   app.bus,
	})

	initialized = true
	logger.Info("application initialized successfully")
	return app, nil
}

// setupEvents creates the bus with its log and metrics sinks, plus the
// Pub/Sub sink when a project is configured.
func (app *application) setupEvents(ctx context.Context) error {
	eventMetrics, err := metrics.NewEventMetrics(app.registry)
	if err != nil {
		return fmt.Errorf("failed to register event metrics: %w", err)
	}
	sinks := []events.Sink{events.NewLogSink(app.logger), eventMetrics}

	if project := app.config.Events.PubSubProject; project != "" {
		app.pubsubClient, err = gpubsub.NewClient(ctx, project)
		if err != nil {
			return fmt.Errorf("failed to create pubsub client: %w", err)
		}
		app.pubsubSink = pubsub.NewSink(app.pubsubClient.Topic(app.config.Events.PubSubTopic), app.logger)
		sinks = append(sinks, app.pubsubSink)
		app.logger.Info("publishing progress events to pubsub",
			"project", project,
			"topic", app.config.Events.PubSubTopic)
	}

	app.bus = events.NewBus(app.logger,
		events.WithSinks(sinks...),
		events.WithSubscriberBuffer(app.config.Events.SubscriberBuffer))
	if err := metrics.RegisterDropped(app.registry, app.bus); err != nil {
		return fmt.Errorf("failed to register dropped event metric: %w", err)
	}
	return nil
}

func (app *application) setupImageStore(ctx context.Context) (store.ImageStore, error) {
	if app.config.Images.Backend != "gcs" {
		return postgres.NewPostgresImageStore(app.pool), nil
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	app.storageClient = client

	images, err := gcs.NewImageStore(client, app.config.Images.GCSBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs image store: %w", err)
	}
	app.logger.Info("storing images in gcs", "bucket", app.config.Images.GCSBucket)
	return images, nil
}

// setupQueue builds the gateway, the handler registry and the processor.
func (app *application) setupQueue() error {
	cfg := app.config.Queue
	switch cfg.Backend {
	case "memory":
		app.gateway = queue.NewMemoryGateway(cfg.Visibility())
	default:
		if app.pool == nil {
			return errors.New("pgmq queue backend requires a database pool")
		}
		app.gateway = pgmq.NewGateway(app.pool, cfg.Visibility())
	}

	queueMetrics, err := metrics.NewQueueMetrics(app.registry)
	if err != nil {
		return fmt.Errorf("failed to register queue metrics: %w", err)
	}

	registry := queue.NewRegistry(
		handlers.NewBookmarkHandler(app.enricher, app.logger),
		queue.NewCatchAllHandler(app.logger),
	)

	queues := make([]queue.QueueOptions, 0, len(cfg.Names))
	for _, name := range cfg.Names {
		opts := queue.DefaultQueueOptions(name)
		opts.BatchSize = cfg.BatchSize
		opts.PollInterval = cfg.PollInterval()
		opts.MaxRetries = cfg.MaxRetries
		queues = append(queues, opts)
	}

	app.processor, err = queue.NewProcessor(app.gateway, registry,
		queue.ProcessorConfig{Queues: queues}, app.logger,
		queue.WithRecorder(queueMetrics))
	if err != nil {
		return fmt.Errorf("failed to create queue processor: %w", err)
	}
	return nil
}

func (app *application) healthChecks() map[string]api.CheckFunc {
	checks := map[string]api.CheckFunc{
		"queue": func(context.Context) error {
			if app.config.Queue.AutoStart && !app.processor.Running() {
				return errors.New("queue processor is not running")
			}
			return nil
		},
	}
	if app.pool != nil {
		checks["database"] = app.pool.Ping
	}
	return checks
}

// Run starts the queue processor when configured to, serves HTTP and blocks
// until ctx is cancelled or a shutdown signal arrives.
func (app *application) Run(ctx context.Context) error {
	if app.config.Queue.AutoStart {
		if err := app.processor.Start(ctx); err != nil {
			app.cleanup()
			return fmt.Errorf("failed to start queue processor: %w", err)
		}
	} else {
		app.logger.Info("queue processor auto start disabled")
	}

	if err := app.startHTTPServer(ctx, app.router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops the processor, flushes event sinks and closes clients.
func (app *application) cleanup() {
	timeout := app.config.Queue.ShutdownTimeout()
	if app.processor != nil && app.processor.Running() {
		if err := app.processor.Stop(timeout); err != nil {
			app.logger.Error("queue processor did not stop cleanly", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	app.closeClients(ctx)

	if app.pool != nil {
		app.pool.Close()
	}
	app.logger.Info("application shutdown completed")
}

func (app *application) closeClients(ctx context.Context) {
	if app.pubsubSink != nil {
		if err := app.pubsubSink.Close(ctx); err != nil {
			app.logger.Error("error flushing pubsub sink", "error", err)
		}
	}
	if app.pubsubClient != nil {
		if err := app.pubsubClient.Close(); err != nil {
			app.logger.Error("error closing pubsub client", "error", err)
		}
	}
	if app.storageClient != nil {
		if err := app.storageClient.Close(); err != nil {
			app.logger.Error("error closing storage client", "error", err)
		}
	}
}
