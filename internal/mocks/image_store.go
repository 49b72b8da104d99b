package mocks

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/bookmark-enricher/internal/domain"
	"github.com/phrazzld/bookmark-enricher/internal/store"
)

// MockImageStore implements store.ImageStore, keeping the last chunk saved
// for each (content, index) pair.
type MockImageStore struct {
	SaveImageFn func(ctx context.Context, chunk domain.ImageChunk) (string, error)

	mu     sync.Mutex
	chunks map[imageKey]domain.ImageChunk
	saves  int
}

type imageKey struct {
	content uuid.UUID
	index   int
}

var _ store.ImageStore = (*MockImageStore)(nil)

// SaveImage implements store.ImageStore.
func (m *MockImageStore) SaveImage(ctx context.Context, chunk domain.ImageChunk) (string, error) {
	if m.SaveImageFn != nil {
		return m.SaveImageFn(ctx, chunk)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.chunks == nil {
		m.chunks = make(map[imageKey]domain.ImageChunk)
	}
	m.chunks[imageKey{chunk.ScrapedContentID, chunk.Index}] = chunk
	m.saves++
	return fmt.Sprintf("mock://%s/%d", chunk.ScrapedContentID, chunk.Index), nil
}

// Chunks returns the stored chunks ordered by index.
func (m *MockImageStore) Chunks() []domain.ImageChunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ImageChunk, 0, len(m.chunks))
	for _, c := range m.chunks {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.ImageChunk) int { return a.Index - b.Index })
	return out
}

// Saves returns how many times SaveImage stored a chunk.
func (m *MockImageStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
