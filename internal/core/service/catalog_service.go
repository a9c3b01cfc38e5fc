package service

import (
	"context"

	"stockroom/internal/core/domain"
	"stockroom/internal/port"
)

// CatalogService answers category-tree queries and scopes item visibility
// to a subtree. The tree is rebuilt from a snapshot per call; category
// editing is catalog management, outside this core.
type CatalogService struct {
	store port.Store
}

func NewCatalogService(store port.Store) *CatalogService {
	return &CatalogService{store: store}
}

func (s *CatalogService) tree(ctx context.Context) (*domain.CategoryTree, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return domain.NewCategoryTree(categories), nil
}

// IsDescendant reports whether candidateID lies in the subtree rooted at
// rootID.
func (s *CatalogService) IsDescendant(ctx context.Context, candidateID, rootID int64) (bool, error) {
	tree, err := s.tree(ctx)
	if err != nil {
		return false, err
	}
	return tree.IsDescendant(candidateID, rootID)
}

// ChildrenOf returns the immediate children of categoryID.
func (s *CatalogService) ChildrenOf(ctx context.Context, categoryID int64) ([]domain.Category, error) {
	tree, err := s.tree(ctx)
	if err != nil {
		return nil, err
	}
	return tree.ChildrenOf(categoryID)
}

// ListCategories returns the full category snapshot.
func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.store.ListCategories(ctx)
}

// ItemsUnder lists the items whose category lies in the subtree rooted at
// rootID. rootID 0 means no scoping: all items.
func (s *CatalogService) ItemsUnder(ctx context.Context, rootID int64) ([]domain.Item, error) {
	if rootID == 0 {
		return s.store.ListItems(ctx, nil)
	}

	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	tree := domain.NewCategoryTree(categories)

	if _, err := tree.ChildrenOf(rootID); err != nil {
		return nil, err
	}

	var scope []int64
	for _, c := range categories {
		ok, err := tree.IsDescendant(c.ID, rootID)
		if err != nil {
			return nil, err
		}
		if ok {
			scope = append(scope, c.ID)
		}
	}

	return s.store.ListItems(ctx, scope)
}
