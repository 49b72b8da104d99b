package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryGateway is an in-process Gateway with visibility-timeout semantics.
// It backs the worker's local mode and the processor tests.
type MemoryGateway struct {
	mu         sync.Mutex
	visibility time.Duration
	now        func() time.Time
	nextID     int64
	queues     map[string]*memoryQueue
}

type memoryQueue struct {
	pending  []*Message
	archived []Message
}

// NewMemoryGateway creates a gateway whose popped messages stay invisible
// for the given duration.
func NewMemoryGateway(visibility time.Duration) *MemoryGateway {
	return &MemoryGateway{
		visibility: visibility,
		now:        time.Now,
		queues:     make(map[string]*memoryQueue),
	}
}

func (g *MemoryGateway) queue(name string) *memoryQueue {
	q, ok := g.queues[name]
	if !ok {
		q = &memoryQueue{}
		g.queues[name] = q
	}
	return q
}

// PopBatch claims up to max visible messages in enqueue order.
func (g *MemoryGateway) PopBatch(ctx context.Context, queue string, max int) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	q := g.queue(queue)
	var out []Message
	for _, m := range q.pending {
		if len(out) >= max {
			break
		}
		if m.VisibleAt.After(now) {
			continue
		}
		m.ReadCount++
		m.VisibleAt = now.Add(g.visibility)
		cp := *m
		cp.Payload = append(json.RawMessage(nil), m.Payload...)
		out = append(out, cp)
	}
	return out, nil
}

// Delete removes a message.
func (g *MemoryGateway) Delete(_ context.Context, queue string, id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, err := g.remove(queue, id)
	return err
}

// Archive moves a message to the queue's archive.
func (g *MemoryGateway) Archive(_ context.Context, queue string, id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, err := g.remove(queue, id)
	if err != nil {
		return err
	}
	q := g.queue(queue)
	q.archived = append(q.archived, m)
	return nil
}

func (g *MemoryGateway) remove(queue string, id int64) (Message, error) {
	q := g.queue(queue)
	for i, m := range q.pending {
		if m.ID == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return *m, nil
		}
	}
	return Message{}, fmt.Errorf("%w: %s/%d", ErrMessageNotFound, queue, id)
}

// Send enqueues payload, which is marshalled to JSON unless it already is
// a json.RawMessage.
func (g *MemoryGateway) Send(_ context.Context, queue string, payload any, delay time.Duration) (int64, error) {
	raw, ok := payload.(json.RawMessage)
	if !ok {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("marshal payload: %w", err)
		}
		raw = b
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.nextID++
	now := g.now()
	g.queue(queue).pending = append(g.queue(queue).pending, &Message{
		ID:         g.nextID,
		EnqueuedAt: now,
		VisibleAt:  now.Add(delay),
		Payload:    raw,
	})
	return g.nextID, nil
}

// Pending returns the number of messages not yet deleted or archived.
func (g *MemoryGateway) Pending(queue string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queue(queue).pending)
}

// Archived returns a copy of the archived messages.
func (g *MemoryGateway) Archived(queue string) []Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Message(nil), g.queue(queue).archived...)
}
