package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ScrapedImage is an image reference found on the page during scraping.
type ScrapedImage struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// ScrapedContent is the extracted text and media of a bookmarked page. The
// worker treats it as read-only input.
type ScrapedContent struct {
	ID         uuid.UUID      `json:"id"`
	BookmarkID uuid.UUID      `json:"bookmarkId"`
	Title      string         `json:"title,omitempty"`
	Content    string         `json:"content"`
	Images     []ScrapedImage `json:"images,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// HasText reports whether there is any non-whitespace text to summarize.
func (c *ScrapedContent) HasText() bool {
	return c != nil && strings.TrimSpace(c.Content) != ""
}

// ImageChunk is a fetched image persisted alongside the scraped content.
// (ScrapedContentID, Index) identifies a chunk, so storing it twice
// overwrites rather than duplicates.
type ImageChunk struct {
	ScrapedContentID uuid.UUID
	BookmarkID       uuid.UUID
	UserID           uuid.UUID
	Index            int
	OriginalURL      string
	AltText          string
	MIMEType         string
	Data             []byte
}
