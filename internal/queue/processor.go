package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/phrazzld/bookmark-enricher/internal/platform/logger"
)

// Archive reasons reported to the Recorder.
const (
	ArchiveReasonNoHandler    = "no_handler"
	ArchiveReasonNonRetryable = "non_retryable"
	ArchiveReasonExhausted    = "retries_exhausted"
)

// QueueOptions configures the loop for one queue.
type QueueOptions struct {
	// Name of the queue as known by the Gateway
	Name string

	// BatchSize is the maximum number of messages claimed per poll
	BatchSize int

	// PollInterval is how long the loop sleeps after an empty or failed poll
	PollInterval time.Duration

	// MaxRetries is the number of failed attempts tolerated before a
	// message is archived. A message is handled at most MaxRetries+1 times
	// by this process.
	MaxRetries int
}

// ProcessorConfig holds configuration for the processor.
type ProcessorConfig struct {
	Queues []QueueOptions
}

// DefaultQueueOptions returns QueueOptions with the documented defaults.
func DefaultQueueOptions(name string) QueueOptions {
	return QueueOptions{
		Name:         name,
		BatchSize:    10,
		PollInterval: 5 * time.Second,
		MaxRetries:   3,
	}
}

func (c ProcessorConfig) validate() error {
	if len(c.Queues) == 0 {
		return fmt.Errorf("%w: no queues configured", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Queues))
	for _, q := range c.Queues {
		switch {
		case q.Name == "":
			return fmt.Errorf("%w: empty queue name", ErrInvalidConfig)
		case seen[q.Name]:
			return fmt.Errorf("%w: duplicate queue %q", ErrInvalidConfig, q.Name)
		case q.BatchSize <= 0:
			return fmt.Errorf("%w: queue %q batch size must be positive", ErrInvalidConfig, q.Name)
		case q.PollInterval <= 0:
			return fmt.Errorf("%w: queue %q poll interval must be positive", ErrInvalidConfig, q.Name)
		case q.MaxRetries < 0:
			return fmt.Errorf("%w: queue %q max retries must not be negative", ErrInvalidConfig, q.Name)
		}
		seen[q.Name] = true
	}
	return nil
}

// Option customizes a Processor.
type Option func(*Processor)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Processor) {
		if r != nil {
			p.metrics = r
		}
	}
}

// Processor polls queues and dispatches their messages to handlers.
type Processor struct {
	gateway  Gateway
	registry *Registry
	tracker  *RetryTracker
	config   ProcessorConfig
	logger   *slog.Logger
	metrics  Recorder

	mu      sync.Mutex
	running bool

	// loopCancel stops the polling loops. workCancel cancels the context
	// handed to handlers and only fires once a graceful stop is over.
	loopCancel context.CancelFunc
	workCancel context.CancelFunc
	wg         sync.WaitGroup
}

// NewProcessor creates a Processor. The registry should end with a
// CatchAllHandler; without one, unmatched messages are archived directly.
func NewProcessor(gateway Gateway, registry *Registry, config ProcessorConfig, logger *slog.Logger, opts ...Option) (*Processor, error) {
	if gateway == nil {
		return nil, fmt.Errorf("%w: gateway is required", ErrInvalidConfig)
	}
	if registry == nil {
		return nil, fmt.Errorf("%w: registry is required", ErrInvalidConfig)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	p := &Processor{
		gateway:  gateway,
		registry: registry,
		tracker:  NewRetryTracker(),
		config:   config,
		logger:   logger.With("component", "queue_processor"),
		metrics:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}

	if !registry.HasCatchAll() {
		p.logger.Warn("handler registry has no catch-all handler")
	}
	return p, nil
}

// Start launches one polling loop per configured queue. The loops stop
// when ctx is cancelled or Stop is called.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrAlreadyRunning
	}

	loopCtx, loopCancel := context.WithCancel(ctx)
	workCtx, workCancel := context.WithCancel(context.WithoutCancel(ctx))
	p.loopCancel = loopCancel
	p.workCancel = workCancel
	p.running = true

	for _, q := range p.config.Queues {
		p.wg.Add(1)
		go p.run(loopCtx, workCtx, q)
	}

	p.logger.Info("queue processor started", "queues", len(p.config.Queues))
	return nil
}

// Stop halts polling and waits up to timeout for in-flight messages. On
// timeout the handlers' context is cancelled and ErrShutdownTimeout is
// returned; the abandoned messages reappear after their visibility timeout.
func (p *Processor) Stop(timeout time.Duration) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.loopCancel()
	workCancel := p.workCancel
	p.mu.Unlock()

	p.logger.Info("stopping queue processor", "timeout", timeout)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		workCancel()
		p.logger.Info("queue processor stopped")
		return nil
	case <-timer.C:
		workCancel()
		p.logger.Warn("graceful shutdown timed out, abandoning in-flight messages")
		return ErrShutdownTimeout
	}
}

// Running reports whether the processor has been started and not stopped.
func (p *Processor) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// run polls q until ctx is done. Handlers receive workCtx, which belongs to
// the Start call that launched this loop.
func (p *Processor) run(ctx, workCtx context.Context, q QueueOptions) {
	defer p.wg.Done()

	log := p.logger.With("queue", q.Name)
	log.Debug("queue loop started",
		"batch_size", q.BatchSize,
		"poll_interval", q.PollInterval,
		"max_retries", q.MaxRetries)

	for ctx.Err() == nil {
		msgs, err := p.gateway.PopBatch(ctx, q.Name, q.BatchSize)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			p.metrics.PollFailed(q.Name)
			log.Error("failed to claim messages", "error", err)
			sleep(ctx, q.PollInterval)
			continue
		}

		if len(msgs) == 0 {
			sleep(ctx, q.PollInterval)
			continue
		}

		p.metrics.BatchClaimed(q.Name, len(msgs))
		log.Debug("claimed batch", "count", len(msgs))
		p.processBatch(workCtx, q, msgs)
	}

	log.Debug("queue loop stopped")
}

// processBatch handles every message concurrently and waits for all of them.
// One message failing never affects its siblings.
func (p *Processor) processBatch(workCtx context.Context, q QueueOptions, msgs []Message) {
	var wg sync.WaitGroup
	for _, msg := range msgs {
		wg.Add(1)
		go func(msg Message) {
			defer wg.Done()
			p.processMessage(workCtx, q, msg)
		}(msg)
	}
	wg.Wait()
}

func (p *Processor) processMessage(workCtx context.Context, q QueueOptions, msg Message) {
	msgType := msg.Type()
	log := p.logger.With(
		"queue", q.Name,
		"msg_id", msg.ID,
		"msg_type", msgType,
		"read_ct", msg.ReadCount,
	)
	ctx := logger.WithLogger(workCtx, log)

	handler, ok := p.registry.Find(msgType)
	if !ok {
		log.Error("no handler registered for message type, archiving")
		p.archive(ctx, log, q, msg, ArchiveReasonNoHandler)
		return
	}

	log.Debug("processing message")
	start := time.Now()
	err := invoke(ctx, handler, msg)
	p.metrics.MessageHandled(q.Name, msgType, time.Since(start), err)

	if err == nil {
		p.tracker.Clear(q.Name, msg.ID)
		if delErr := p.gateway.Delete(ctx, q.Name, msg.ID); delErr != nil {
			log.Error("failed to delete processed message", "error", delErr)
			return
		}
		log.Info("message processed", "duration", time.Since(start))
		return
	}

	if ctx.Err() != nil {
		log.Warn("message interrupted by shutdown, leaving for redelivery", "error", err)
		return
	}

	p.handleFailure(ctx, log, q, msg, err)
}

func (p *Processor) handleFailure(ctx context.Context, log *slog.Logger, q QueueOptions, msg Message, err error) {
	attempts := p.tracker.Attempts(q.Name, msg.ID)
	retryable := IsRetryable(err)

	if retryable && attempts < q.MaxRetries {
		n := p.tracker.Increment(q.Name, msg.ID)
		p.metrics.MessageRetried(q.Name)
		log.Warn("message processing failed, will retry after visibility timeout",
			"attempt", n,
			"max_retries", q.MaxRetries,
			"error", err)
		return
	}

	p.tracker.Clear(q.Name, msg.ID)

	reason := ArchiveReasonExhausted
	if !retryable {
		reason = ArchiveReasonNonRetryable
	}
	log.Error(fmt.Sprintf("archived message after %d failed attempts", attempts+1),
		"reason", reason,
		"error", err)
	p.archive(ctx, log, q, msg, reason)
}

func (p *Processor) archive(ctx context.Context, log *slog.Logger, q QueueOptions, msg Message, reason string) {
	if err := p.gateway.Archive(ctx, q.Name, msg.ID); err != nil {
		log.Error("failed to archive message", "reason", reason, "error", err)
		return
	}
	p.metrics.MessageArchived(q.Name, reason)
}

// errHandlerPanic wraps a recovered handler panic.
var errHandlerPanic = errors.New("handler panicked")

func invoke(ctx context.Context, h Handler, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.FromContext(ctx).Error("recovered from handler panic",
				"panic", r,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", errHandlerPanic, r)
		}
	}()
	return h.Handle(ctx, msg)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
