package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// UncategorizedName is the root-level category used when the model gives
// no usable placement.
const UncategorizedName = "Uncategorized"

// MaxCategoryNameLength bounds a single path segment.
const MaxCategoryNameLength = 100

// CategoryNode is one node of a user's category forest. Nodes without a
// parent are roots.
type CategoryNode struct {
	ID       uuid.UUID  `json:"id"`
	UserID   uuid.UUID  `json:"userId"`
	Name     string     `json:"name"`
	ParentID *uuid.UUID `json:"parentId,omitempty"`
}

// IsRoot reports whether the node has no parent.
func (n CategoryNode) IsRoot() bool {
	return n.ParentID == nil
}

// ValidateCategoryPath checks that every segment is non-blank and short
// enough to store. Names are compared case-sensitively, so no case folding
// happens here.
func ValidateCategoryPath(names []string) error {
	if len(names) == 0 {
		return ErrEmptyCategoryPath
	}
	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: segment %d is blank", ErrInvalidCategoryName, i)
		}
		if utf8.RuneCountInString(name) > MaxCategoryNameLength {
			return fmt.Errorf("%w: segment %d exceeds %d characters",
				ErrInvalidCategoryName, i, MaxCategoryNameLength)
		}
	}
	return nil
}
