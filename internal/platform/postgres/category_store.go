package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/phrazzld/bookmark-enricher/internal/domain"
	"github.com/phrazzld/bookmark-enricher/internal/platform/logger"
	"github.com/phrazzld/bookmark-enricher/internal/store"
)

// PostgresCategoryStore implements store.CategoryStore over the collections
// table.
type PostgresCategoryStore struct {
	db store.TxBeginner
}

var _ store.CategoryStore = (*PostgresCategoryStore)(nil)

// NewPostgresCategoryStore creates a new PostgresCategoryStore.
func NewPostgresCategoryStore(db store.TxBeginner) *PostgresCategoryStore {
	return &PostgresCategoryStore{db: db}
}

// FindCategoryForest returns every category of the user ordered by name.
func (s *PostgresCategoryStore) FindCategoryForest(
	ctx context.Context,
	userID uuid.UUID,
) ([]domain.CategoryNode, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, name, parent_id
		FROM collections
		WHERE user_id = $1
		ORDER BY name ASC`, userID)
	if err != nil {
		return nil, MapError(err)
	}
	defer rows.Close()

	var nodes []domain.CategoryNode
	for rows.Next() {
		var n domain.CategoryNode
		if err := rows.Scan(&n.ID, &n.UserID, &n.Name, &n.ParentID); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return nodes, nil
}

// CreateCategoryPath finds or creates each segment of names under the
// previous one inside a single transaction. Names match exactly.
func (s *PostgresCategoryStore) CreateCategoryPath(
	ctx context.Context,
	userID uuid.UUID,
	names []string,
) (domain.CategoryNode, error) {
	if err := domain.ValidateCategoryPath(names); err != nil {
		return domain.CategoryNode{}, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	log := logger.FromContext(ctx)
	var last domain.CategoryNode

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx pgx.Tx) error {
		var parentID *uuid.UUID
		for _, name := range names {
			node, err := findOrCreateChild(ctx, tx, userID, parentID, name)
			if err != nil {
				return err
			}
			id := node.ID
			parentID = &id
			last = node
		}
		return nil
	})
	if err != nil {
		log.Error("failed to create category path", "user_id", userID, "depth", len(names), "error", err)
		return domain.CategoryNode{}, store.NewStoreError("category", "create_path", "transaction failed", err)
	}
	return last, nil
}

func findOrCreateChild(
	ctx context.Context,
	db store.DBTX,
	userID uuid.UUID,
	parentID *uuid.UUID,
	name string,
) (domain.CategoryNode, error) {
	node, err := findChild(ctx, db, userID, parentID, name)
	if err == nil {
		return node, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.CategoryNode{}, MapError(err)
	}

	node = domain.CategoryNode{ID: uuid.New(), UserID: userID, Name: name, ParentID: parentID}
	err = db.QueryRow(ctx, `
		INSERT INTO collections (id, user_id, name, parent_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
		RETURNING id`, node.ID, userID, name, parentID).Scan(&node.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		// A concurrent run inserted the same node between the lookup and the
		// insert; the unique index guarantees it is now visible.
		node, err = findChild(ctx, db, userID, parentID, name)
	}
	if err != nil {
		return domain.CategoryNode{}, MapError(err)
	}
	return node, nil
}

func findChild(
	ctx context.Context,
	db store.DBTX,
	userID uuid.UUID,
	parentID *uuid.UUID,
	name string,
) (domain.CategoryNode, error) {
	var n domain.CategoryNode
	err := db.QueryRow(ctx, `
		SELECT id, user_id, name, parent_id
		FROM collections
		WHERE user_id = $1 AND name = $2 AND parent_id IS NOT DISTINCT FROM $3`,
		userID, name, parentID).Scan(&n.ID, &n.UserID, &n.Name, &n.ParentID)
	return n, err
}
