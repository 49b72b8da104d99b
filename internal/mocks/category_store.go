package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/bookmark-enricher/internal/domain"
	"github.com/phrazzld/bookmark-enricher/internal/store"
)

// MockCategoryStore implements store.CategoryStore in memory with the same
// exact-name reuse rules as the Postgres store.
type MockCategoryStore struct {
	FindCategoryForestFn func(ctx context.Context, userID uuid.UUID) ([]domain.CategoryNode, error)
	CreateCategoryPathFn func(ctx context.Context, userID uuid.UUID, names []string) (domain.CategoryNode, error)

	mu      sync.Mutex
	nodes   []domain.CategoryNode
	created int
}

var _ store.CategoryStore = (*MockCategoryStore)(nil)

// NewMockCategoryStore creates a store seeded with nodes.
func NewMockCategoryStore(nodes ...domain.CategoryNode) *MockCategoryStore {
	return &MockCategoryStore{nodes: append([]domain.CategoryNode(nil), nodes...)}
}

// Nodes returns every stored node.
func (m *MockCategoryStore) Nodes() []domain.CategoryNode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CategoryNode(nil), m.nodes...)
}

// Created returns how many nodes CreateCategoryPath inserted.
func (m *MockCategoryStore) Created() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created
}

// FindCategoryForest implements store.CategoryStore.
func (m *MockCategoryStore) FindCategoryForest(ctx context.Context, userID uuid.UUID) ([]domain.CategoryNode, error) {
	if m.FindCategoryForestFn != nil {
		return m.FindCategoryForestFn(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CategoryNode
	for _, n := range m.nodes {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

// CreateCategoryPath implements store.CategoryStore.
func (m *MockCategoryStore) CreateCategoryPath(ctx context.Context, userID uuid.UUID, names []string) (domain.CategoryNode, error) {
	if m.CreateCategoryPathFn != nil {
		return m.CreateCategoryPathFn(ctx, userID, names)
	}
	if err := domain.ValidateCategoryPath(names); err != nil {
		return domain.CategoryNode{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var parent *uuid.UUID
	var current domain.CategoryNode
	for _, name := range names {
		found := false
		for _, n := range m.nodes {
			if n.UserID == userID && n.Name == name && sameParent(n.ParentID, parent) {
				current, found = n, true
				break
			}
		}
		if !found {
			current = domain.CategoryNode{ID: uuid.New(), UserID: userID, Name: name, ParentID: parent}
			m.nodes = append(m.nodes, current)
			m.created++
		}
		id := current.ID
		parent = &id
	}
	return current, nil
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
