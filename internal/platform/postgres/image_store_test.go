package postgres_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/phrazzld/bookmark-enricher/internal/domain"
	"github.com/phrazzld/bookmark-enricher/internal/platform/postgres"
	"github.com/phrazzld/bookmark-enricher/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageStoreSaveImage(t *testing.T) {
	t.Parallel()

	t.Run("upserts by content and index", func(t *testing.T) {
		t.Parallel()
		mock := newMockPool(t)
		s := postgres.NewPostgresImageStore(mock)

		chunk := domain.ImageChunk{
			ScrapedContentID: uuid.New(),
			BookmarkID:       uuid.New(),
			UserID:           uuid.New(),
			Index:            2,
			OriginalURL:      "https://example.com/diagram.png",
			AltText:          "diagram",
			MIMEType:         "image/png",
			Data:             []byte{0x89, 'P', 'N', 'G'},
		}
		rowID := uuid.New()
		mock.ExpectQuery(`ON CONFLICT \(scraped_content_id, chunk_index\) DO UPDATE`).
			WithArgs(pgxmock.AnyArg(), chunk.ScrapedContentID, chunk.BookmarkID, chunk.UserID, 2,
				chunk.OriginalURL, "diagram", "image/png", 4, chunk.Data).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(rowID))

		ref, err := s.SaveImage(context.Background(), chunk)

		require.NoError(t, err)
		assert.Equal(t, "image_chunks/"+rowID.String(), ref)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty data rejected", func(t *testing.T) {
		t.Parallel()
		s := postgres.NewPostgresImageStore(newMockPool(t))

		_, err := s.SaveImage(context.Background(), domain.ImageChunk{})

		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})
}
