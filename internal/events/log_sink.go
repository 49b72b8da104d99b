package events

import (
	"context"
	"log/slog"
)

// LogSink writes each event as a debug log line. Text deltas are not
// logged to keep the stream readable.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With("component", "event_log_sink")}
}

// Publish logs evt.
func (s *LogSink) Publish(ctx context.Context, evt Event) error {
	level := slog.LevelDebug
	switch evt.Type {
	case SessionError, TaskFailed, ToolFailed:
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "progress event",
		"entity_id", evt.EntityID,
		"event_type", evt.Type,
		"timestamp", evt.Timestamp)
	return nil
}
