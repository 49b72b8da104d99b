package fetch

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Limited caps the number of concurrent fetches across all of its callers.
type Limited struct {
	next Fetcher
	sem  *semaphore.Weighted
}

var _ Fetcher = (*Limited)(nil)

// NewLimited wraps next so that at most n fetches run at once.
func NewLimited(next Fetcher, n int64) *Limited {
	if n <= 0 {
		n = 1
	}
	return &Limited{next: next, sem: semaphore.NewWeighted(n)}
}

// Fetch waits for a slot, or for ctx to end, and then delegates.
func (l *Limited) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for fetch slot: %w", err)
	}
	defer l.sem.Release(1)
	return l.next.Fetch(ctx, rawURL)
}
