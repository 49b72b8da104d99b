package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	apiMiddleware "github.com/phrazzld/bookmark-enricher/internal/api/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig holds the handlers' dependencies.
type RouterConfig struct {
	Logger   *slog.Logger
	Health   map[string]CheckFunc
	Gatherer prometheus.Gatherer
	Events   Subscriber
	Options  []EventsOption
}

// NewRouter builds the worker's HTTP router. /metrics is mounted only when a
// gatherer is given and the progress stream only when an event source is.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(apiMiddleware.NewTraceMiddleware(cfg.Logger))
	r.Use(chiMiddleware.Recoverer)

	r.Method(http.MethodGet, "/health", NewHealthHandler(cfg.Health))

	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	if cfg.Events != nil {
		eventsHandler := NewEventsHandler(cfg.Events, cfg.Options...)
		r.Route("/v1", func(r chi.Router) {
			r.Get("/bookmarks/{bookmarkID}/events", eventsHandler.StreamBookmarkEvents)
		})
	}

	return r
}
