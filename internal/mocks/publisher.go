package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/bookmark-enricher/internal/events"
)

// MockPublisher implements events.Publisher and records every event.
type MockPublisher struct {
	PublishFn func(ctx context.Context, entityID string, typ events.Type, data any) error

	mu     sync.Mutex
	events []events.Event
}

var _ events.Publisher = (*MockPublisher)(nil)

// PublishToEntity implements events.Publisher.
func (m *MockPublisher) PublishToEntity(ctx context.Context, entityID string, typ events.Type, data any) error {
	m.mu.Lock()
	m.events = append(m.events, events.Event{EntityID: entityID, Type: typ, Data: data})
	m.mu.Unlock()
	if m.PublishFn != nil {
		return m.PublishFn(ctx, entityID, typ, data)
	}
	return nil
}

// Events returns the recorded events in publish order.
func (m *MockPublisher) Events() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.Event(nil), m.events...)
}

// OfType returns the recorded events of type typ.
func (m *MockPublisher) OfType(typ events.Type) []events.Event {
	var out []events.Event
	for _, e := range m.Events() {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// Count returns how many events of type typ were recorded.
func (m *MockPublisher) Count(typ events.Type) int {
	return len(m.OfType(typ))
}
