package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/bookmark-enricher/internal/domain"
	"github.com/phrazzld/bookmark-enricher/internal/store"
)

// PostgresImageStore keeps fetched image bytes in the image_chunks table.
type PostgresImageStore struct {
	db store.DBTX
}

var _ store.ImageStore = (*PostgresImageStore)(nil)

// NewPostgresImageStore creates a new PostgresImageStore.
func NewPostgresImageStore(db store.DBTX) *PostgresImageStore {
	return &PostgresImageStore{db: db}
}

// SaveImage upserts the chunk keyed by (scraped_content_id, chunk_index) and
// returns a reference of the form "image_chunks/<id>".
func (s *PostgresImageStore) SaveImage(ctx context.Context, chunk domain.ImageChunk) (string, error) {
	if len(chunk.Data) == 0 {
		return "", fmt.Errorf("%w: %v", store.ErrInvalidEntity, domain.ErrEmptyContent)
	}

	var id uuid.UUID
	err := s.db.QueryRow(ctx, `
		INSERT INTO image_chunks (
			id, scraped_content_id, bookmark_id, user_id, chunk_index,
			original_url, alt_text, mime_type, size_bytes, image_data
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (scraped_content_id, chunk_index) DO UPDATE SET
			original_url = EXCLUDED.original_url,
			alt_text = EXCLUDED.alt_text,
			mime_type = EXCLUDED.mime_type,
			size_bytes = EXCLUDED.size_bytes,
			image_data = EXCLUDED.image_data,
			updated_at = NOW()
		RETURNING id`,
		uuid.New(), chunk.ScrapedContentID, chunk.BookmarkID, chunk.UserID, chunk.Index,
		chunk.OriginalURL, chunk.AltText, chunk.MIMEType, len(chunk.Data), chunk.Data,
	).Scan(&id)
	if err != nil {
		return "", MapError(err)
	}
	return "image_chunks/" + id.String(), nil
}
