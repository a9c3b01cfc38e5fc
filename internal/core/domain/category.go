package domain

import "time"

// maxCategoryDepth bounds upward walks over the parent chain so that an
// accidental cycle in stored data surfaces as ErrCycleDetected instead of
// an infinite loop.
const maxCategoryDepth = 64

// Category is a node in the classification forest. Parent/child relations
// are id references only; there are no live back-references.
type Category struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	ParentID  *int64    `db:"parent_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// CategoryTree is an arena of categories indexed by id, built from a full
// snapshot of the categories table.
type CategoryTree struct {
	byID     map[int64]Category
	children map[int64][]int64
}

func NewCategoryTree(categories []Category) *CategoryTree {
	t := &CategoryTree{
		byID:     make(map[int64]Category, len(categories)),
		children: make(map[int64][]int64),
	}
	for _, c := range categories {
		t.byID[c.ID] = c
		if c.ParentID != nil {
			t.children[*c.ParentID] = append(t.children[*c.ParentID], c.ID)
		}
	}
	return t
}

// IsDescendant walks the parent chain upward from candidateID until it
// reaches rootID, a root, or the depth bound. A category is considered a
// descendant of itself.
func (t *CategoryTree) IsDescendant(candidateID, rootID int64) (bool, error) {
	if _, ok := t.byID[rootID]; !ok {
		return false, ErrCategoryNotFound
	}
	current, ok := t.byID[candidateID]
	if !ok {
		return false, ErrCategoryNotFound
	}
	for depth := 0; depth < maxCategoryDepth; depth++ {
		if current.ID == rootID {
			return true, nil
		}
		if current.ParentID == nil {
			return false, nil
		}
		parent, ok := t.byID[*current.ParentID]
		if !ok {
			// Dangling parent reference terminates the chain.
			return false, nil
		}
		current = parent
	}
	return false, ErrCycleDetected
}

// ChildrenOf returns the immediate children of categoryID, empty when it
// is a leaf.
func (t *CategoryTree) ChildrenOf(categoryID int64) ([]Category, error) {
	if _, ok := t.byID[categoryID]; !ok {
		return nil, ErrCategoryNotFound
	}
	ids := t.children[categoryID]
	out := make([]Category, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.byID[id])
	}
	return out, nil
}
