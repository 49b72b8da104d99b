package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/phrazzld/bookmark-enricher/internal/api/shared"
	"github.com/phrazzld/bookmark-enricher/internal/events"
	"github.com/phrazzld/bookmark-enricher/internal/platform/logger"
)

const defaultHeartbeat = 15 * time.Second

// Subscriber is the part of the event bus the progress stream reads from.
type Subscriber interface {
	Subscribe(entityID string) (<-chan events.Event, func())
}

// EventsHandler streams a bookmark's progress events as server-sent events.
type EventsHandler struct {
	bus       Subscriber
	heartbeat time.Duration
}

// EventsOption customizes an EventsHandler.
type EventsOption func(*EventsHandler)

// WithHeartbeat sets the interval of keep-alive comments.
func WithHeartbeat(d time.Duration) EventsOption {
	return func(h *EventsHandler) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

// NewEventsHandler creates an EventsHandler reading from bus.
func NewEventsHandler(bus Subscriber, opts ...EventsOption) *EventsHandler {
	h := &EventsHandler{bus: bus, heartbeat: defaultHeartbeat}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// StreamBookmarkEvents handles GET /v1/bookmarks/{bookmarkID}/events.
//
// Each event is written as
//
//	event: <type>
//	data: <event json>
//
// The stream ends when the client goes away, when the bus closes the
// bookmark's channels, or after a session.completed or session.error event.
func (h *EventsHandler) StreamBookmarkEvents(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	bookmarkID, err := getPathUUID(r, "bookmarkID")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid bookmarkID")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	ch, cancel := h.bus.Subscribe(bookmarkID.String())
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log.Debug("progress stream opened", "bookmark_id", bookmarkID)
	defer log.Debug("progress stream closed", "bookmark_id", bookmarkID)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case evt, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				log.Error("failed to encode progress event",
					"bookmark_id", bookmarkID,
					"event_type", evt.Type,
					"error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data); err != nil {
				return
			}
			flusher.Flush()

			if evt.Type == events.SessionCompleted || evt.Type == events.SessionError {
				return
			}
		}
	}
}
