package postgres_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/phrazzld/bookmark-enricher/internal/platform/postgres"
	"github.com/phrazzld/bookmark-enricher/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var categoryCols = []string{"id", "user_id", "name", "parent_id"}

const (
	findChildSQL   = "parent_id IS NOT DISTINCT FROM"
	insertChildSQL = "INSERT INTO collections"
)

func TestCategoryStoreFindCategoryForest(t *testing.T) {
	t.Parallel()
	mock := newMockPool(t)
	s := postgres.NewPostgresCategoryStore(mock)

	userID, techID, aiID := uuid.New(), uuid.New(), uuid.New()
	mock.ExpectQuery("ORDER BY name ASC").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(categoryCols).
			AddRow(aiID, userID, "AI", &techID).
			AddRow(techID, userID, "Tech", nil))

	nodes, err := s.FindCategoryForest(context.Background(), userID)

	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, techID, *nodes[0].ParentID)
	assert.True(t, nodes[1].IsRoot())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryStoreCreateCategoryPath(t *testing.T) {
	t.Parallel()

	t.Run("creates missing segments", func(t *testing.T) {
		t.Parallel()
		mock := newMockPool(t)
		s := postgres.NewPostgresCategoryStore(mock)

		userID, techID, aiID := uuid.New(), uuid.New(), uuid.New()
		mock.ExpectBegin()
		mock.ExpectQuery(findChildSQL).
			WithArgs(userID, "Tech", (*uuid.UUID)(nil)).
			WillReturnRows(pgxmock.NewRows(categoryCols))
		mock.ExpectQuery(insertChildSQL).
			WithArgs(pgxmock.AnyArg(), userID, "Tech", (*uuid.UUID)(nil)).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(techID))
		mock.ExpectQuery(findChildSQL).
			WithArgs(userID, "AI", &techID).
			WillReturnRows(pgxmock.NewRows(categoryCols))
		mock.ExpectQuery(insertChildSQL).
			WithArgs(pgxmock.AnyArg(), userID, "AI", &techID).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(aiID))
		mock.ExpectCommit()

		node, err := s.CreateCategoryPath(context.Background(), userID, []string{"Tech", "AI"})

		require.NoError(t, err)
		assert.Equal(t, aiID, node.ID)
		assert.Equal(t, "AI", node.Name)
		require.NotNil(t, node.ParentID)
		assert.Equal(t, techID, *node.ParentID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second call reuses existing nodes", func(t *testing.T) {
		t.Parallel()
		mock := newMockPool(t)
		s := postgres.NewPostgresCategoryStore(mock)

		userID, techID, aiID := uuid.New(), uuid.New(), uuid.New()
		mock.ExpectBegin()
		mock.ExpectQuery(findChildSQL).
			WithArgs(userID, "Tech", (*uuid.UUID)(nil)).
			WillReturnRows(pgxmock.NewRows(categoryCols).AddRow(techID, userID, "Tech", nil))
		mock.ExpectQuery(findChildSQL).
			WithArgs(userID, "AI", &techID).
			WillReturnRows(pgxmock.NewRows(categoryCols).AddRow(aiID, userID, "AI", &techID))
		mock.ExpectCommit()

		node, err := s.CreateCategoryPath(context.Background(), userID, []string{"Tech", "AI"})

		require.NoError(t, err)
		assert.Equal(t, aiID, node.ID)
		assert.NoError(t, mock.ExpectationsWereMet(), "no insert expected")
	})

	t.Run("lost insert race re-reads the winner", func(t *testing.T) {
		t.Parallel()
		mock := newMockPool(t)
		s := postgres.NewPostgresCategoryStore(mock)

		userID, techID := uuid.New(), uuid.New()
		mock.ExpectBegin()
		mock.ExpectQuery(findChildSQL).
			WithArgs(userID, "Tech", (*uuid.UUID)(nil)).
			WillReturnRows(pgxmock.NewRows(categoryCols))
		mock.ExpectQuery(insertChildSQL).
			WithArgs(pgxmock.AnyArg(), userID, "Tech", (*uuid.UUID)(nil)).
			WillReturnRows(pgxmock.NewRows([]string{"id"}))
		mock.ExpectQuery(findChildSQL).
			WithArgs(userID, "Tech", (*uuid.UUID)(nil)).
			WillReturnRows(pgxmock.NewRows(categoryCols).AddRow(techID, userID, "Tech", nil))
		mock.ExpectCommit()

		node, err := s.CreateCategoryPath(context.Background(), userID, []string{"Tech"})

		require.NoError(t, err)
		assert.Equal(t, techID, node.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty path is rejected without a transaction", func(t *testing.T) {
		t.Parallel()
		mock := newMockPool(t)
		s := postgres.NewPostgresCategoryStore(mock)

		_, err := s.CreateCategoryPath(context.Background(), uuid.New(), nil)

		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
