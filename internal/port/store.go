package port

import (
	"context"

	"stockroom/internal/core/domain"
)

// Store is the durable data-access collaborator. WithinTx runs fn inside
// a single transaction: fn returning nil commits, any error rolls back
// every mutation made through the Tx. Transient conflicts (deadlocks) are
// retried by the implementation, never by callers.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	// Read-only projections, outside any transaction.
	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	GetItem(ctx context.Context, itemID int64) (*domain.Item, error)
	ListItems(ctx context.Context, categoryIDs []int64) ([]domain.Item, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

// Tx exposes the mutations available inside one transaction. ForUpdate
// loads acquire exclusive row locks held until commit or rollback.
type Tx interface {
	OrderForUpdate(ctx context.Context, orderID int64) (*domain.Order, error)
	ItemForUpdate(ctx context.Context, itemID int64) (*domain.Item, error)

	UpdateItemStock(ctx context.Context, item *domain.Item) error
	UpdateOrderStatus(ctx context.Context, order *domain.Order) error

	InsertOrderLine(ctx context.Context, line *domain.OrderLine) error
	UpdateOrderLineQuantity(ctx context.Context, line *domain.OrderLine) error
	DeleteOrderLine(ctx context.Context, lineID int64) error
}
