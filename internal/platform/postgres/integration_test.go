//go:build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/phrazzld/bookmark-enricher/internal/domain"
	"github.com/phrazzld/bookmark-enricher/internal/platform/postgres"
	"github.com/phrazzld/bookmark-enricher/internal/store"
	"github.com/phrazzld/bookmark-enricher/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedBookmark(t *testing.T, tx pgx.Tx, userID uuid.UUID) (bookmarkID, contentID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	bookmarkID, contentID = uuid.New(), uuid.New()

	_, err := tx.Exec(ctx,
		`INSERT INTO bookmarks (id, user_id, source_url, title) VALUES ($1, $2, $3, $4)`,
		bookmarkID, userID, "https://example.com/rust", "Rust async")
	require.NoError(t, err)

	_, err = tx.Exec(ctx,
		`INSERT INTO scraped_url_contents (id, bookmark_id, title, content, images)
		 VALUES ($1, $2, $3, $4, $5)`,
		contentID, bookmarkID, "Rust async", "Futures are lazy.",
		`[{"url":"https://example.com/a.png","alt":"diagram"}]`)
	require.NoError(t, err)
	return bookmarkID, contentID
}

func TestIntegration_BookmarkStore(t *testing.T) {
	pool := testdb.Pool(t)

	testdb.WithTx(t, pool, func(t *testing.T, tx pgx.Tx) {
		ctx := context.Background()
		userID := uuid.New()
		bookmarkID, contentID := seedBookmark(t, tx, userID)
		bookmarks := postgres.NewPostgresBookmarkStore(tx)

		b, err := bookmarks.FindBookmark(ctx, bookmarkID, userID)
		require.NoError(t, err)
		assert.Equal(t, domain.ProcessingStatusIdle, b.ProcessingStatus)

		_, err = bookmarks.FindBookmark(ctx, bookmarkID, uuid.New())
		assert.ErrorIs(t, err, store.ErrBookmarkNotFound)

		content, err := bookmarks.GetScrapedContent(ctx, bookmarkID)
		require.NoError(t, err)
		assert.Equal(t, contentID, content.ID)
		require.Len(t, content.Images, 1)
		assert.Equal(t, "diagram", content.Images[0].Alt)

		summary := "Futures are lazy state machines."
		status := domain.ProcessingStatusCompleted
		updated, err := bookmarks.UpdateBookmark(ctx, bookmarkID, domain.BookmarkPatch{
			Summary:          &summary,
			Tags:             []string{"rust", "async"},
			Images:           []domain.BookmarkImage{{URL: "https://example.com/a.png", StorageRef: "image_chunks/1"}},
			ProcessingStatus: &status,
		})
		require.NoError(t, err)
		assert.Equal(t, summary, updated.Summary)
		assert.Equal(t, []string{"rust", "async"}, updated.Tags)
		assert.Equal(t, status, updated.ProcessingStatus)
		require.Len(t, updated.Images, 1)
	})
}

func TestIntegration_CategoryAndImageStores(t *testing.T) {
	pool := testdb.Pool(t)

	testdb.WithTx(t, pool, func(t *testing.T, tx pgx.Tx) {
		ctx := context.Background()
		userID := uuid.New()
		bookmarkID, contentID := seedBookmark(t, tx, userID)

		categories := postgres.NewPostgresCategoryStore(tx)
		leaf, err := categories.CreateCategoryPath(ctx, userID, []string{"Programming", "Rust"})
		require.NoError(t, err)
		again, err := categories.CreateCategoryPath(ctx, userID, []string{"Programming", "Rust"})
		require.NoError(t, err)
		assert.Equal(t, leaf.ID, again.ID)

		forest, err := categories.FindCategoryForest(ctx, userID)
		require.NoError(t, err)
		assert.Len(t, forest, 2)

		images := postgres.NewPostgresImageStore(tx)
		chunk := domain.ImageChunk{
			ScrapedContentID: contentID,
			BookmarkID:       bookmarkID,
			UserID:           userID,
			OriginalURL:      "https://example.com/a.png",
			MIMEType:         "image/png",
			Data:             []byte{0x89, 'P', 'N', 'G'},
		}
		ref1, err := images.SaveImage(ctx, chunk)
		require.NoError(t, err)
		chunk.Data = append(chunk.Data, 0x00)
		ref2, err := images.SaveImage(ctx, chunk)
		require.NoError(t, err)
		assert.Equal(t, ref1, ref2)

		var count int
		require.NoError(t, tx.QueryRow(ctx,
			`SELECT count(*) FROM image_chunks WHERE scraped_content_id = $1`, contentID).Scan(&count))
		assert.Equal(t, 1, count)
	})
}
