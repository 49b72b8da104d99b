package events

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const defaultSubscriberBuffer = 64

// Bus fans events out to per-entity subscribers and to sinks.
type Bus struct {
	mu       sync.RWMutex
	entities map[string]*entity
	nextID   uint64

	sinks   []Sink
	buffer  int
	now     func() time.Time
	logger  *slog.Logger
	dropped atomic.Int64
}

type entity struct {
	subscribers map[uint64]*subscriber
}

type subscriber struct {
	ch   chan Event
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.ch) })
}

// BusOption customizes a Bus.
type BusOption func(*Bus)

// WithSinks adds sinks that receive every event.
func WithSinks(sinks ...Sink) BusOption {
	return func(b *Bus) {
		for _, s := range sinks {
			if s != nil {
				b.sinks = append(b.sinks, s)
			}
		}
	}
}

// WithSubscriberBuffer sets the channel buffer per subscriber.
func WithSubscriberBuffer(n int) BusOption {
	return func(b *Bus) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) BusOption {
	return func(b *Bus) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBus creates an empty Bus.
func NewBus(logger *slog.Logger, opts ...BusOption) *Bus {
	b := &Bus{
		entities: make(map[string]*entity),
		buffer:   defaultSubscriberBuffer,
		now:      time.Now,
		logger:   logger.With("component", "event_bus"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// entityLocked returns the entity, creating it if needed. b.mu must be held
// for writing.
func (b *Bus) entityLocked(id string) *entity {
	e, ok := b.entities[id]
	if !ok {
		e = &entity{subscribers: make(map[uint64]*subscriber)}
		b.entities[id] = e
	}
	return e
}

// Subscribe returns a channel of events for entityID and a function that
// cancels the subscription. The channel is closed on cancel or when the
// entity is closed. Cancelling the last subscriber forgets the entity; a
// later publish recreates it.
func (b *Bus) Subscribe(entityID string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	sub := &subscriber{ch: make(chan Event, b.buffer)}
	b.entityLocked(entityID).subscribers[id] = sub

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if e, ok := b.entities[entityID]; ok {
			delete(e.subscribers, id)
			if len(e.subscribers) == 0 {
				delete(b.entities, entityID)
			}
		}
		sub.close()
	}
	return sub.ch, cancel
}

// PublishToEntity stamps and delivers an event. Only invalid events produce
// an error; slow subscribers miss the event and sink failures are logged.
func (b *Bus) PublishToEntity(ctx context.Context, entityID string, typ Type, data any) error {
	if entityID == "" {
		return fmt.Errorf("%w: empty entity id", ErrInvalidEvent)
	}
	if !typ.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, typ)
	}

	evt := Event{
		EntityID:  entityID,
		Type:      typ,
		Data:      data,
		Timestamp: b.now().UTC(),
	}

	b.mu.Lock()
	e := b.entityLocked(entityID)
	for _, sub := range e.subscribers {
		select {
		case sub.ch <- evt:
		default:
			b.dropped.Add(1)
			b.logger.Warn("subscriber buffer full, dropping event",
				"entity_id", entityID,
				"event_type", typ)
		}
	}
	b.mu.Unlock()

	for _, sink := range b.sinks {
		if err := sink.Publish(ctx, evt); err != nil {
			b.logger.Error("event sink failed",
				"entity_id", entityID,
				"event_type", typ,
				"error", err)
		}
	}
	return nil
}

// CloseEntity closes every subscriber channel of entityID and forgets it.
func (b *Bus) CloseEntity(entityID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entities[entityID]
	if !ok {
		return
	}
	for _, sub := range e.subscribers {
		sub.close()
	}
	delete(b.entities, entityID)
}

// ActiveEntities returns the ids with live channel sets, sorted.
func (b *Bus) ActiveEntities() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]string, 0, len(b.entities))
	for id := range b.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dropped returns how many subscriber deliveries were skipped because of
// full buffers.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}
