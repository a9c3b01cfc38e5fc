package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom/internal/core/domain"
	"stockroom/internal/port"
)

func TestMemoryStoreWithinTx_RollsBackOnError(t *testing.T) {
	store := NewMemoryStore()
	store.PutItem(domain.Item{ID: 1, OnHand: 10})
	store.PutOrder(domain.Order{ID: 1, Status: domain.OrderStatusOpen})
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(tx port.Tx) error {
		item, err := tx.ItemForUpdate(ctx, 1)
		require.NoError(t, err)
		require.NoError(t, item.Reserve(5))
		require.NoError(t, tx.UpdateItemStock(ctx, item))

		line := &domain.OrderLine{OrderID: 1, ItemID: 1, Quantity: 5}
		require.NoError(t, tx.InsertOrderLine(ctx, line))
		return boom
	})
	require.ErrorIs(t, err, boom)

	item, err := store.GetItem(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, item.Reserved)

	order, err := store.GetOrder(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, order.Lines)
}

func TestMemoryStoreWithinTx_Commits(t *testing.T) {
	store := NewMemoryStore()
	store.PutItem(domain.Item{ID: 1, OnHand: 10})
	store.PutOrder(domain.Order{ID: 1, Status: domain.OrderStatusOpen})
	ctx := context.Background()

	err := store.WithinTx(ctx, func(tx port.Tx) error {
		line := &domain.OrderLine{OrderID: 1, ItemID: 1, Quantity: 2}
		return tx.InsertOrderLine(ctx, line)
	})
	require.NoError(t, err)

	order, err := store.GetOrder(ctx, 1)
	require.NoError(t, err)
	require.Len(t, order.Lines, 1)
	assert.NotZero(t, order.Lines[0].ID)
}

func TestMemoryStoreListItems_Scoped(t *testing.T) {
	store := NewMemoryStore()
	catA := int64(1)
	store.PutItem(domain.Item{ID: 1, CategoryID: &catA})
	store.PutItem(domain.Item{ID: 2})

	all, err := store.ListItems(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := store.ListItems(context.Background(), []int64{1})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, int64(1), scoped[0].ID)

	none, err := store.ListItems(context.Background(), []int64{})
	require.NoError(t, err)
	assert.Empty(t, none)
}
