package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/phrazzld/bookmark-enricher/internal/api/shared"
	"github.com/phrazzld/bookmark-enricher/internal/platform/logger"
)

const defaultHealthTimeout = 2 * time.Second

// CheckFunc reports the health of one dependency.
type CheckFunc func(ctx context.Context) error

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HealthHandler runs named checks and answers 200 when all pass, 503
// otherwise. Failure details are logged, never returned.
type HealthHandler struct {
	checks  map[string]CheckFunc
	timeout time.Duration
}

// NewHealthHandler creates a HealthHandler. Nil checks are ignored.
func NewHealthHandler(checks map[string]CheckFunc) *HealthHandler {
	h := &HealthHandler{checks: make(map[string]CheckFunc, len(checks)), timeout: defaultHealthTimeout}
	for name, fn := range checks {
		if fn != nil {
			h.checks[name] = fn
		}
	}
	return h
}

// ServeHTTP handles GET /health.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
	status := http.StatusOK
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			logger.FromContext(r.Context()).Warn("health check failed", "check", name, "error", err)
			resp.Checks[name] = "fail"
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	shared.RespondWithJSON(w, r, status, resp)
}
