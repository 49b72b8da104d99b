package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/bookmark-enricher/internal/domain"
)

// BookmarkStore is the storage collaborator the enrichment workflow reads
// bookmarks and scraped content from and writes results back through.
type BookmarkStore interface {
	// FindBookmark returns the bookmark owned by userID, or
	// ErrBookmarkNotFound.
	FindBookmark(ctx context.Context, id, userID uuid.UUID) (*domain.Bookmark, error)

	// GetScrapedContent returns the most recent scraped content for a
	// bookmark, or ErrScrapedContentNotFound.
	GetScrapedContent(ctx context.Context, bookmarkID uuid.UUID) (*domain.ScrapedContent, error)

	// UpdateBookmark applies patch and returns the updated bookmark.
	UpdateBookmark(ctx context.Context, id uuid.UUID, patch domain.BookmarkPatch) (*domain.Bookmark, error)
}
