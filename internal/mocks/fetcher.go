package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/phrazzld/bookmark-enricher/internal/platform/fetch"
)

// PNG is a minimal PNG header returned by MockFetcher by default.
var PNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// MockFetcher implements fetch.Fetcher and tracks how many fetches overlap.
type MockFetcher struct {
	FetchFn func(ctx context.Context, rawURL string) (*fetch.Image, error)

	// Delay is how long each default fetch takes.
	Delay time.Duration

	// Errors maps URLs to the error their fetch returns.
	Errors map[string]error

	mu       sync.Mutex
	calls    []string
	inFlight int
	peak     int
}

var _ fetch.Fetcher = (*MockFetcher)(nil)

// Fetch implements fetch.Fetcher.
func (m *MockFetcher) Fetch(ctx context.Context, rawURL string) (*fetch.Image, error) {
	m.mu.Lock()
	m.calls = append(m.calls, rawURL)
	m.inFlight++
	if m.inFlight > m.peak {
		m.peak = m.inFlight
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if m.FetchFn != nil {
		return m.FetchFn(ctx, rawURL)
	}

	if m.Delay > 0 {
		t := time.NewTimer(m.Delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	if err := m.Errors[rawURL]; err != nil {
		return nil, err
	}
	return &fetch.Image{URL: rawURL, MIMEType: "image/png", Data: PNG}, nil
}

// Calls returns the fetched URLs in call order.
func (m *MockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Peak returns the largest number of simultaneous fetches observed.
func (m *MockFetcher) Peak() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peak
}
