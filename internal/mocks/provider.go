package mocks

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/phrazzld/bookmark-enricher/internal/generation"
)

// ErrNoResponse is returned by MockProvider.GenerateStructured when no
// behavior has been configured.
var ErrNoResponse = errors.New("mock provider: no structured response configured")

// MockProvider implements generation.Provider for testing.
type MockProvider struct {
	PromptStreamFn       func(ctx context.Context, req generation.Request) (<-chan generation.Part, error)
	GenerateStructuredFn func(ctx context.Context, req generation.Request, out any) error

	// StreamText is streamed as text deltas when PromptStreamFn is nil,
	// followed by StreamErr as an error part when set.
	StreamText []string
	StreamErr  error

	mu                 sync.Mutex
	streamRequests     []generation.Request
	structuredRequests []generation.Request
}

var _ generation.Provider = (*MockProvider)(nil)

// PromptStream implements generation.Provider.
func (m *MockProvider) PromptStream(ctx context.Context, req generation.Request) (<-chan generation.Part, error) {
	m.mu.Lock()
	m.streamRequests = append(m.streamRequests, req)
	m.mu.Unlock()

	if m.PromptStreamFn != nil {
		return m.PromptStreamFn(ctx, req)
	}
	return StreamOf(ctx, req, m.StreamErr, m.StreamText...), nil
}

// GenerateStructured implements generation.Provider.
func (m *MockProvider) GenerateStructured(ctx context.Context, req generation.Request, out any) error {
	m.mu.Lock()
	m.structuredRequests = append(m.structuredRequests, req)
	m.mu.Unlock()

	if m.GenerateStructuredFn != nil {
		return m.GenerateStructuredFn(ctx, req, out)
	}
	return ErrNoResponse
}

// StreamRequests returns the PromptStream requests seen so far.
func (m *MockProvider) StreamRequests() []generation.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]generation.Request(nil), m.streamRequests...)
}

// StructuredRequests returns the GenerateStructured requests seen so far.
func (m *MockProvider) StructuredRequests() []generation.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]generation.Request(nil), m.structuredRequests...)
}

// CallCount returns the total number of provider calls.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.streamRequests) + len(m.structuredRequests)
}

// StreamOf returns a stream of text deltas tagged with the request's
// session and task, ending with err when it is non-nil.
func StreamOf(ctx context.Context, req generation.Request, err error, deltas ...string) <-chan generation.Part {
	return generation.NewStream(ctx, len(deltas)+1, func(ctx context.Context, emit generation.Emitter) error {
		for _, d := range deltas {
			p := generation.TextPart(d)
			p.SessionID = req.SessionID
			p.TaskID = req.TaskID
			if !emit.Emit(p) {
				return ctx.Err()
			}
		}
		return err
	})
}

// Respond stores v into out the way a real provider would: v is encoded to
// JSON, decoded into out and validated.
func Respond(out any, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return generation.DecodeStructured(string(b), out)
}
