package queue

import (
	"context"
	"fmt"
	"log/slog"
)

// Handler processes messages of the types it accepts.
type Handler interface {
	CanHandle(msgType string) bool
	Handle(ctx context.Context, msg Message) error
}

// Registry dispatches by message type to the first handler that accepts it.
// Registration order matters: more specific handlers go first and a
// CatchAllHandler goes last.
type Registry struct {
	handlers []Handler
}

// NewRegistry creates a registry with handlers in the given order.
func NewRegistry(handlers ...Handler) *Registry {
	return &Registry{handlers: append([]Handler(nil), handlers...)}
}

// Register appends h. Not safe to call once the processor has started.
func (r *Registry) Register(h Handler) {
	r.handlers = append(r.handlers, h)
}

// Find returns the first handler accepting msgType.
func (r *Registry) Find(msgType string) (Handler, bool) {
	for _, h := range r.handlers {
		if h.CanHandle(msgType) {
			return h, true
		}
	}
	return nil, false
}

// HasCatchAll reports whether the last handler is a CatchAllHandler.
func (r *Registry) HasCatchAll() bool {
	if len(r.handlers) == 0 {
		return false
	}
	_, ok := r.handlers[len(r.handlers)-1].(*CatchAllHandler)
	return ok
}

// CatchAllHandler accepts every type. It logs the message and fails it
// permanently so the message is archived for inspection rather than
// silently dropped.
type CatchAllHandler struct {
	logger *slog.Logger
}

// NewCatchAllHandler creates a CatchAllHandler.
func NewCatchAllHandler(logger *slog.Logger) *CatchAllHandler {
	return &CatchAllHandler{logger: logger.With("component", "catch_all_handler")}
}

// CanHandle always returns true.
func (h *CatchAllHandler) CanHandle(string) bool { return true }

// Handle logs the unhandled message and returns a permanent error.
func (h *CatchAllHandler) Handle(_ context.Context, msg Message) error {
	h.logger.Warn("received message with no registered handler",
		"msg_id", msg.ID,
		"msg_type", msg.Type(),
		"payload_bytes", len(msg.Payload))
	return Permanent(fmt.Errorf("%w: %q", ErrUnhandledMessage, msg.Type()))
}
