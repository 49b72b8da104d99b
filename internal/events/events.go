package events

import (
	"context"
	"errors"
	"time"
)

// Type names a progress event.
type Type string

// Supported event types.
const (
	SessionStarted     Type = "session.started"
	SessionCompleted   Type = "session.completed"
	SessionError       Type = "session.error"
	MessageUpdated     Type = "message.updated"
	MessagePartUpdated Type = "message.part.updated"
	ToolFailed         Type = "tool.failed"
	BookmarkUpdated    Type = "bookmark.updated"
	TaskStarted        Type = "task.started"
	TaskUpdated        Type = "task.updated"
	TaskCompleted      Type = "task.completed"
	TaskFailed         Type = "task.failed"
)

// Valid reports whether t is a known event type.
func (t Type) Valid() bool {
	switch t {
	case SessionStarted, SessionCompleted, SessionError,
		MessageUpdated, MessagePartUpdated, ToolFailed,
		BookmarkUpdated,
		TaskStarted, TaskUpdated, TaskCompleted, TaskFailed:
		return true
	}
	return false
}

// ErrInvalidEvent is returned when publishing an event without an entity or
// with an unknown type.
var ErrInvalidEvent = errors.New("invalid event")

// Event is the wire payload delivered to subscribers and sinks.
type Event struct {
	EntityID  string    `json:"entityId"`
	Type      Type      `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher publishes progress for one entity.
type Publisher interface {
	PublishToEntity(ctx context.Context, entityID string, typ Type, data any) error
}

// Sink receives every published event. Implementations must be safe for
// concurrent use.
type Sink interface {
	Publish(ctx context.Context, evt Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, evt Event) error

// Publish calls f.
func (f SinkFunc) Publish(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}
