package metrics

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/phrazzld/bookmark-enricher/internal/events"
)

// EventMetrics counts progress events and tracks enrichment sessions. It
// is registered on the event bus as a sink.
type EventMetrics struct {
	published       *prometheus.CounterVec
	sessionsRunning prometheus.Gauge
	sessionsDone    *prometheus.CounterVec

	mu      sync.Mutex
	running map[string]struct{}
}

var _ events.Sink = (*EventMetrics)(nil)

// NewEventMetrics registers the event collectors against reg.
func NewEventMetrics(reg prometheus.Registerer) (*EventMetrics, error) {
	m := &EventMetrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookmark_events_total",
			Help: "Progress events published partitioned by type.",
		}, []string{"type"}),
		sessionsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "enrichment_sessions_running",
			Help: "Enrichment sessions currently in progress.",
		}),
		sessionsDone: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enrichment_sessions_finished_total",
			Help: "Finished enrichment sessions partitioned by result.",
		}, []string{"result"}),
		running: make(map[string]struct{}),
	}
	if err := register(reg, m.published, m.sessionsRunning, m.sessionsDone); err != nil {
		return nil, err
	}
	return m, nil
}

// RegisterDropped exposes the bus's count of deliveries skipped because a
// subscriber's buffer was full.
func RegisterDropped(reg prometheus.Registerer, bus *events.Bus) error {
	return register(reg, prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "bookmark_event_deliveries_dropped_total",
		Help: "Progress events not delivered to a slow stream subscriber.",
	}, func() float64 { return float64(bus.Dropped()) }))
}

// Publish implements events.Sink.
func (m *EventMetrics) Publish(_ context.Context, evt events.Event) error {
	m.published.WithLabelValues(string(evt.Type)).Inc()

	switch evt.Type {
	case events.SessionStarted:
		if m.track(evt.EntityID) {
			m.sessionsRunning.Inc()
		}
	case events.SessionCompleted:
		m.finish(evt.EntityID, "success")
	case events.SessionError:
		m.finish(evt.EntityID, "error")
	}
	return nil
}

func (m *EventMetrics) track(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.running[id]; ok {
		return false
	}
	m.running[id] = struct{}{}
	return true
}

func (m *EventMetrics) finish(id, result string) {
	m.sessionsDone.WithLabelValues(result).Inc()

	m.mu.Lock()
	_, ok := m.running[id]
	delete(m.running, id)
	m.mu.Unlock()

	if ok {
		m.sessionsRunning.Dec()
	}
}
