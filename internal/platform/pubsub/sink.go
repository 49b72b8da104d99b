// Package pubsub forwards progress events to a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"cloud.google.com/go/pubsub"
	"github.com/phrazzld/bookmark-enricher/internal/events"
)

// Attribute keys set on every published message.
const (
	AttrEntityID  = "entity_id"
	AttrEventType = "event_type"
)

// ErrSinkClosed is returned by Publish after Close has been called.
var ErrSinkClosed = errors.New("pubsub sink closed")

// Sink publishes events with the entity id as ordering key, so consumers
// of one bookmark see its events in publish order. Publishing is
// asynchronous; Close waits for outstanding results.
type Sink struct {
	topic  *pubsub.Topic
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

var _ events.Sink = (*Sink)(nil)

// NewSink enables message ordering on topic and wraps it.
func NewSink(topic *pubsub.Topic, logger *slog.Logger) *Sink {
	topic.EnableMessageOrdering = true
	return &Sink{
		topic:  topic,
		logger: logger.With("component", "pubsub_sink", "topic", topic.ID()),
	}
}

// Publish queues evt for publication.
func (s *Sink) Publish(ctx context.Context, evt events.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	// Add happens under mu so Close never waits while a publish is joining.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSinkClosed
	}
	s.wg.Add(1)
	s.mu.Unlock()

	result := s.topic.Publish(ctx, &pubsub.Message{
		Data:        data,
		OrderingKey: evt.EntityID,
		Attributes: map[string]string{
			AttrEntityID:  evt.EntityID,
			AttrEventType: string(evt.Type),
		},
	})

	go func() {
		defer s.wg.Done()
		// the publish context may be gone by the time the result settles
		if _, err := result.Get(context.WithoutCancel(ctx)); err != nil {
			s.logger.Error("failed to publish event",
				"entity_id", evt.EntityID,
				"event_type", evt.Type,
				"error", err)
			// a failed ordered publish pauses its key until resumed
			s.topic.ResumePublish(evt.EntityID)
		}
	}()
	return nil
}

// Close rejects further publishes, waits for outstanding ones bounded by
// ctx, and stops the topic's background publisher. Calling it again is a
// no-op.
func (s *Sink) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.topic.Stop()
		return nil
	case <-ctx.Done():
		s.topic.Stop()
		return fmt.Errorf("pubsub sink close: %w", ctx.Err())
	}
}
