package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/phrazzld/bookmark-enricher/internal/domain"
	"github.com/phrazzld/bookmark-enricher/internal/platform/logger"
	"github.com/phrazzld/bookmark-enricher/internal/store"
)

const bookmarkColumns = `id, user_id, source_url, COALESCE(title, ''), collection_id,
	COALESCE(cosmic_summary, ''), COALESCE(cosmic_brief_summary, ''),
	COALESCE(cosmic_tags, '{}'), COALESCE(cosmic_images, '[]'::jsonb),
	processing_status, processing_started_at, processing_completed_at,
	COALESCE(processing_error, ''), created_at, updated_at`

// PostgresBookmarkStore implements store.BookmarkStore.
type PostgresBookmarkStore struct {
	db  store.DBTX
	now func() time.Time
}

var _ store.BookmarkStore = (*PostgresBookmarkStore)(nil)

// NewPostgresBookmarkStore creates a new PostgresBookmarkStore.
func NewPostgresBookmarkStore(db store.DBTX) *PostgresBookmarkStore {
	return &PostgresBookmarkStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// FindBookmark returns the bookmark with id owned by userID.
func (s *PostgresBookmarkStore) FindBookmark(
	ctx context.Context,
	id, userID uuid.UUID,
) (*domain.Bookmark, error) {
	query := `SELECT ` + bookmarkColumns + ` FROM bookmarks WHERE id = $1 AND user_id = $2`

	b, err := scanBookmark(s.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, mapNotFound(err, store.ErrBookmarkNotFound)
	}
	return b, nil
}

// GetScrapedContent returns the newest scraped content row for bookmarkID.
func (s *PostgresBookmarkStore) GetScrapedContent(
	ctx context.Context,
	bookmarkID uuid.UUID,
) (*domain.ScrapedContent, error) {
	query := `
		SELECT id, bookmark_id, COALESCE(title, ''), content,
			COALESCE(images, '[]'::jsonb), created_at
		FROM scraped_url_contents
		WHERE bookmark_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	var (
		c      domain.ScrapedContent
		images []byte
	)
	err := s.db.QueryRow(ctx, query, bookmarkID).Scan(
		&c.ID, &c.BookmarkID, &c.Title, &c.Content, &images, &c.CreatedAt,
	)
	if err != nil {
		return nil, mapNotFound(err, store.ErrScrapedContentNotFound)
	}
	if err := json.Unmarshal(images, &c.Images); err != nil {
		return nil, fmt.Errorf("failed to decode scraped images: %w", err)
	}
	return &c, nil
}

// UpdateBookmark applies the set fields of patch and returns the stored row.
// updated_at is always bumped.
func (s *PostgresBookmarkStore) UpdateBookmark(
	ctx context.Context,
	id uuid.UUID,
	patch domain.BookmarkPatch,
) (*domain.Bookmark, error) {
	log := logger.FromContext(ctx)

	if err := patch.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	sets, args, err := buildBookmarkUpdate(patch)
	if err != nil {
		return nil, err
	}
	args = append(args, s.now())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE bookmarks SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), bookmarkColumns)

	b, err := scanBookmark(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		log.Error("failed to update bookmark", "bookmark_id", id, "error", err)
		return nil, mapNotFound(err, store.ErrBookmarkNotFound)
	}
	return b, nil
}

// buildBookmarkUpdate turns a patch into SET clauses with positional args.
func buildBookmarkUpdate(p domain.BookmarkPatch) ([]string, []any, error) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if p.Summary != nil {
		add("cosmic_summary", *p.Summary)
	}
	if p.BriefSummary != nil {
		add("cosmic_brief_summary", *p.BriefSummary)
	}
	if p.Tags != nil {
		add("cosmic_tags", p.Tags)
	}
	if p.Images != nil {
		raw, err := json.Marshal(p.Images)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode images: %w", err)
		}
		add("cosmic_images", raw)
	}
	if p.CollectionID != nil {
		add("collection_id", *p.CollectionID)
	}
	if p.ProcessingStatus != nil {
		add("processing_status", string(*p.ProcessingStatus))
	}
	if p.ProcessingStartedAt != nil {
		add("processing_started_at", *p.ProcessingStartedAt)
	}
	if p.ProcessingCompletedAt != nil {
		add("processing_completed_at", *p.ProcessingCompletedAt)
	}
	if p.ProcessingError != nil {
		add("processing_error", *p.ProcessingError)
	}
	return sets, args, nil
}

func scanBookmark(row pgx.Row) (*domain.Bookmark, error) {
	var (
		b      domain.Bookmark
		images []byte
		status string
	)
	err := row.Scan(
		&b.ID, &b.UserID, &b.SourceURL, &b.Title, &b.CollectionID,
		&b.Summary, &b.BriefSummary, &b.Tags, &images,
		&status, &b.ProcessingStartedAt, &b.ProcessingCompletedAt,
		&b.ProcessingError, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.ProcessingStatus = domain.ProcessingStatus(status)
	if err := json.Unmarshal(images, &b.Images); err != nil {
		return nil, fmt.Errorf("failed to decode bookmark images: %w", err)
	}
	return &b, nil
}
