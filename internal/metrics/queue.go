package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/phrazzld/bookmark-enricher/internal/queue"
)

// QueueMetrics records queue processor activity.
type QueueMetrics struct {
	claimed      *prometheus.CounterVec
	pollFailures *prometheus.CounterVec
	handled      *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	retries      *prometheus.CounterVec
	archived     *prometheus.CounterVec
	batchSize    *prometheus.HistogramVec
}

var _ queue.Recorder = (*QueueMetrics)(nil)

// NewQueueMetrics registers the queue collectors against reg.
func NewQueueMetrics(reg prometheus.Registerer) (*QueueMetrics, error) {
	m := &QueueMetrics{
		claimed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_messages_claimed_total",
			Help: "Messages claimed from the queue.",
		}, []string{"queue"}),
		pollFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_poll_failures_total",
			Help: "Failed attempts to claim a batch.",
		}, []string{"queue"}),
		handled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_messages_handled_total",
			Help: "Handler invocations partitioned by outcome.",
		}, []string{"queue", "type", "success"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "queue_handler_duration_seconds",
			Help:    "Handler wall time.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"queue", "type"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_messages_retried_total",
			Help: "Failures left on the queue for redelivery.",
		}, []string{"queue"}),
		archived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_messages_archived_total",
			Help: "Messages moved to the archive partitioned by reason.",
		}, []string{"queue", "reason"}),
		batchSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "queue_batch_size",
			Help:    "Messages per claimed batch.",
			Buckets: prometheus.LinearBuckets(1, 5, 10),
		}, []string{"queue"}),
	}
	if err := register(reg, m.claimed, m.pollFailures, m.handled, m.duration, m.retries, m.archived, m.batchSize); err != nil {
		return nil, err
	}
	return m, nil
}

// BatchClaimed implements queue.Recorder.
func (m *QueueMetrics) BatchClaimed(queueName string, size int) {
	m.claimed.WithLabelValues(queueName).Add(float64(size))
	m.batchSize.WithLabelValues(queueName).Observe(float64(size))
}

// PollFailed implements queue.Recorder.
func (m *QueueMetrics) PollFailed(queueName string) {
	m.pollFailures.WithLabelValues(queueName).Inc()
}

// MessageHandled implements queue.Recorder.
func (m *QueueMetrics) MessageHandled(queueName, msgType string, elapsed time.Duration, err error) {
	m.handled.WithLabelValues(queueName, msgType, strconv.FormatBool(err == nil)).Inc()
	m.duration.WithLabelValues(queueName, msgType).Observe(elapsed.Seconds())
}

// MessageRetried implements queue.Recorder.
func (m *QueueMetrics) MessageRetried(queueName string) {
	m.retries.WithLabelValues(queueName).Inc()
}

// MessageArchived implements queue.Recorder.
func (m *QueueMetrics) MessageArchived(queueName, reason string) {
	m.archived.WithLabelValues(queueName, reason).Inc()
}
