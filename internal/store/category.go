package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/bookmark-enricher/internal/domain"
)

// CategoryStore manages a user's category forest.
type CategoryStore interface {
	// FindCategoryForest returns every category node of the user.
	FindCategoryForest(ctx context.Context, userID uuid.UUID) ([]domain.CategoryNode, error)

	// CreateCategoryPath walks names from the root, reusing a node when a
	// sibling with the exact same name exists under the current parent and
	// creating it otherwise. It returns the node of the last segment.
	CreateCategoryPath(ctx context.Context, userID uuid.UUID, names []string) (domain.CategoryNode, error)
}
