package generation

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited throttles calls to another Provider with a token bucket.
type RateLimited struct {
	next    Provider
	limiter *rate.Limiter
}

var _ Provider = (*RateLimited)(nil)

// NewRateLimited wraps next so that at most rps calls start per second,
// with bursts of up to burst calls. A non-positive rps returns next
// unchanged.
func NewRateLimited(next Provider, rps float64, burst int) Provider {
	if rps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *RateLimited) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}
	return nil
}

// PromptStream implements Provider.
func (r *RateLimited) PromptStream(ctx context.Context, req Request) (<-chan Part, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.next.PromptStream(ctx, req)
}

// GenerateStructured implements Provider.
func (r *RateLimited) GenerateStructured(ctx context.Context, req Request, out any) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	return r.next.GenerateStructured(ctx, req, out)
}
