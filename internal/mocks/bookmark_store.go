package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/bookmark-enricher/internal/domain"
	"github.com/phrazzld/bookmark-enricher/internal/store"
)

// MockBookmarkStore implements store.BookmarkStore with in-memory maps.
type MockBookmarkStore struct {
	FindBookmarkFn      func(ctx context.Context, id, userID uuid.UUID) (*domain.Bookmark, error)
	GetScrapedContentFn func(ctx context.Context, bookmarkID uuid.UUID) (*domain.ScrapedContent, error)
	UpdateBookmarkFn    func(ctx context.Context, id uuid.UUID, patch domain.BookmarkPatch) (*domain.Bookmark, error)

	mu        sync.Mutex
	bookmarks map[uuid.UUID]*domain.Bookmark
	contents  map[uuid.UUID]*domain.ScrapedContent
	patches   []domain.BookmarkPatch
}

var _ store.BookmarkStore = (*MockBookmarkStore)(nil)

// NewMockBookmarkStore creates an empty store.
func NewMockBookmarkStore() *MockBookmarkStore {
	return &MockBookmarkStore{
		bookmarks: make(map[uuid.UUID]*domain.Bookmark),
		contents:  make(map[uuid.UUID]*domain.ScrapedContent),
	}
}

// AddBookmark stores a copy of b.
func (m *MockBookmarkStore) AddBookmark(b *domain.Bookmark) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookmarks[b.ID] = b.Clone()
}

// AddContent stores c as the scraped content of its bookmark.
func (m *MockBookmarkStore) AddContent(c *domain.ScrapedContent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.contents[c.BookmarkID] = &cp
}

// Bookmark returns a copy of the stored bookmark, or nil.
func (m *MockBookmarkStore) Bookmark(id uuid.UUID) *domain.Bookmark {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookmarks[id].Clone()
}

// Patches returns every patch applied so far.
func (m *MockBookmarkStore) Patches() []domain.BookmarkPatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.BookmarkPatch(nil), m.patches...)
}

// FindBookmark implements store.BookmarkStore.
func (m *MockBookmarkStore) FindBookmark(ctx context.Context, id, userID uuid.UUID) (*domain.Bookmark, error) {
	if m.FindBookmarkFn != nil {
		return m.FindBookmarkFn(ctx, id, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookmarks[id]
	if !ok || b.UserID != userID {
		return nil, store.ErrBookmarkNotFound
	}
	return b.Clone(), nil
}

// GetScrapedContent implements store.BookmarkStore.
func (m *MockBookmarkStore) GetScrapedContent(ctx context.Context, bookmarkID uuid.UUID) (*domain.ScrapedContent, error) {
	if m.GetScrapedContentFn != nil {
		return m.GetScrapedContentFn(ctx, bookmarkID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contents[bookmarkID]
	if !ok {
		return nil, store.ErrScrapedContentNotFound
	}
	cp := *c
	return &cp, nil
}

// UpdateBookmark implements store.BookmarkStore.
func (m *MockBookmarkStore) UpdateBookmark(ctx context.Context, id uuid.UUID, patch domain.BookmarkPatch) (*domain.Bookmark, error) {
	m.mu.Lock()
	m.patches = append(m.patches, patch)
	m.mu.Unlock()

	if m.UpdateBookmarkFn != nil {
		return m.UpdateBookmarkFn(ctx, id, patch)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookmarks[id]
	if !ok {
		return nil, store.ErrBookmarkNotFound
	}
	patch.Apply(b)
	return b.Clone(), nil
}
