package queue

import (
	"context"
	"time"
)

// Gateway is a thin client over the external durable queue. Popped messages
// stay invisible for the queue's visibility window and reappear if they are
// neither deleted nor archived in time; that re-appearance is how failed
// messages get retried.
type Gateway interface {
	PopBatch(ctx context.Context, queue string, max int) ([]Message, error)
	Delete(ctx context.Context, queue string, id int64) error
	Archive(ctx context.Context, queue string, id int64) error
	Send(ctx context.Context, queue string, payload any, delay time.Duration) (int64, error)
}
