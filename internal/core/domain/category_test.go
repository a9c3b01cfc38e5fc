package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

// electronics(1) > laptops(2), phones(3); office(4) is a second root.
func sampleTree() *CategoryTree {
	return NewCategoryTree([]Category{
		{ID: 1, Name: "Electronics"},
		{ID: 2, Name: "Laptops", ParentID: ptr(1)},
		{ID: 3, Name: "Phones", ParentID: ptr(1)},
		{ID: 4, Name: "Office"},
	})
}

func TestIsDescendant(t *testing.T) {
	tree := sampleTree()

	ok, err := tree.IsDescendant(2, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tree.IsDescendant(1, 1)
	require.NoError(t, err)
	assert.True(t, ok, "a category is a descendant of itself")

	ok, err = tree.IsDescendant(4, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = tree.IsDescendant(1, 2)
	require.NoError(t, err)
	assert.False(t, ok, "parent is not a descendant of its child")
}

func TestIsDescendant_UnknownIDs(t *testing.T) {
	tree := sampleTree()

	_, err := tree.IsDescendant(99, 1)
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	_, err = tree.IsDescendant(2, 99)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestIsDescendant_CycleDetected(t *testing.T) {
	// Corrupt data: 1 -> 2 -> 1.
	tree := NewCategoryTree([]Category{
		{ID: 1, ParentID: ptr(2)},
		{ID: 2, ParentID: ptr(1)},
		{ID: 3},
	})

	_, err := tree.IsDescendant(1, 3)
	assert.ErrorIs(t, err, ErrCycleDetected)
}

func TestChildrenOf(t *testing.T) {
	tree := sampleTree()

	children, err := tree.ChildrenOf(1)
	require.NoError(t, err)
	require.Len(t, children, 2)

	ids := []int64{children[0].ID, children[1].ID}
	assert.ElementsMatch(t, []int64{2, 3}, ids)

	leaf, err := tree.ChildrenOf(2)
	require.NoError(t, err)
	assert.Empty(t, leaf)

	_, err = tree.ChildrenOf(99)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}
