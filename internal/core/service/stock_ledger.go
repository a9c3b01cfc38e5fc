package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"stockroom/internal/core/domain"
	"stockroom/internal/port"
)

// StockLedger is the only component allowed to change an item's stock
// fields. Reserve runs inside a caller-supplied transaction so the merge
// engine can cover stock and order-line mutation with one commit; Release
// and GetAvailable are standalone operations.
type StockLedger struct {
	store  port.Store
	cache  port.AvailabilityCache
	events port.EventPublisher
}

func NewStockLedger(store port.Store, cache port.AvailabilityCache, events port.EventPublisher) *StockLedger {
	return &StockLedger{store: store, cache: cache, events: events}
}

// Reserve loads the item under an exclusive row lock, checks available
// stock and increments the reservation. On InsufficientStockError nothing
// is written; the row lock is the serialization point that prevents two
// concurrent reservations from overselling.
func (l *StockLedger) Reserve(ctx context.Context, tx port.Tx, itemID int64, quantity int) (*domain.Item, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	item, err := tx.ItemForUpdate(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if err := item.Reserve(quantity); err != nil {
		return nil, err
	}

	if err := tx.UpdateItemStock(ctx, item); err != nil {
		return nil, fmt.Errorf("persist reservation: %w", err)
	}

	return item, nil
}

// ReleaseInTx returns quantity units to the available pool inside a
// caller-supplied transaction.
func (l *StockLedger) ReleaseInTx(ctx context.Context, tx port.Tx, itemID int64, quantity int) (*domain.Item, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	item, err := tx.ItemForUpdate(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := item.Release(quantity); err != nil {
		return nil, err
	}
	if err := tx.UpdateItemStock(ctx, item); err != nil {
		return nil, fmt.Errorf("persist release: %w", err)
	}
	return item, nil
}

// Release returns quantity units of itemID to the available pool in its
// own transaction. Used when a line is removed or an order is cancelled.
func (l *StockLedger) Release(ctx context.Context, itemID int64, quantity int) error {
	var available int
	err := l.store.WithinTx(ctx, func(tx port.Tx) error {
		item, err := l.ReleaseInTx(ctx, tx, itemID, quantity)
		if err != nil {
			return err
		}
		available = item.Available()
		return nil
	})
	if err != nil {
		return err
	}

	l.refreshAvailability(ctx, itemID, available)
	l.publish(ctx, domain.StockReleased{ItemID: itemID, Quantity: quantity, Available: available})
	return nil
}

// GetItem reads the full item projection, database-backed.
func (l *StockLedger) GetItem(ctx context.Context, itemID int64) (*domain.Item, error) {
	return l.store.GetItem(ctx, itemID)
}

// GetAvailable reads the derived available quantity, preferring the cache.
func (l *StockLedger) GetAvailable(ctx context.Context, itemID int64) (int, error) {
	if qty, ok, err := l.cache.GetAvailable(ctx, itemID); err == nil && ok {
		return qty, nil
	} else if err != nil {
		log.WithError(err).WithField("item_id", itemID).Warn("availability cache read failed")
	}

	item, err := l.store.GetItem(ctx, itemID)
	if err != nil {
		return 0, err
	}

	available := item.Available()
	l.refreshAvailability(ctx, itemID, available)
	return available, nil
}

// refreshAvailability updates the cache after a committed change. Cache
// failures are logged, not propagated; the database already holds the
// truth.
func (l *StockLedger) refreshAvailability(ctx context.Context, itemID int64, available int) {
	if err := l.cache.SetAvailable(ctx, itemID, available); err != nil {
		log.WithError(err).WithField("item_id", itemID).Warn("availability cache refresh failed")
	}
}

func (l *StockLedger) publish(ctx context.Context, event port.Event) {
	if err := l.events.Publish(ctx, event); err != nil {
		log.WithError(err).WithField("event", event.Type()).Warn("event publish failed")
	}
}
