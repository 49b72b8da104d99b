package store

import (
	"context"

	"github.com/phrazzld/bookmark-enricher/internal/domain"
)

// ImageStore persists fetched image bytes. SaveImage must be idempotent for
// the same (ScrapedContentID, Index) so that re-delivered messages overwrite
// rather than duplicate. It returns an implementation-specific reference.
type ImageStore interface {
	SaveImage(ctx context.Context, chunk domain.ImageChunk) (string, error)
}
