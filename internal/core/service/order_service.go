package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"stockroom/internal/core/domain"
	"stockroom/internal/port"
)

// OrderService orchestrates the order-line merge: reserve stock first,
// then create or grow the line, all in one transaction. Stock and line
// are never committed independently, so a failure after the reservation
// rolls the reservation back too.
type OrderService struct {
	store  port.Store
	ledger *StockLedger
	cache  port.AvailabilityCache
	events port.EventPublisher
}

func NewOrderService(store port.Store, ledger *StockLedger, cache port.AvailabilityCache, events port.EventPublisher) *OrderService {
	return &OrderService{store: store, ledger: ledger, cache: cache, events: events}
}

// AddItemToOrder adds quantity units of itemID to orderID. Calling it
// twice with the same arguments is additive, not idempotent: the line
// quantity and the reservation both grow by quantity each time.
func (s *OrderService) AddItemToOrder(ctx context.Context, orderID, itemID int64, quantity int) (*domain.OrderLine, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	var (
		line      *domain.OrderLine
		available int
		lineQty   int
	)

	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		order, err := tx.OrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.IsOpen() {
			return domain.ErrOrderFinalized
		}

		// Reserve before touching the line set. The item row lock is the
		// single serialization point for concurrent adds of the same item.
		item, err := s.ledger.Reserve(ctx, tx, itemID, quantity)
		if err != nil {
			return err
		}

		if existing := order.FindLine(itemID); existing != nil {
			if _, err := order.IncreaseLineQuantity(itemID, quantity); err != nil {
				return err
			}
			if err := tx.UpdateOrderLineQuantity(ctx, existing); err != nil {
				return fmt.Errorf("update order line: %w", err)
			}
			line = existing
		} else {
			created, err := order.AddNewLine(itemID, quantity, item.PriceCents)
			if err != nil {
				return err
			}
			if err := tx.InsertOrderLine(ctx, created); err != nil {
				return fmt.Errorf("insert order line: %w", err)
			}
			line = created
		}

		available = item.Available()
		lineQty = line.Quantity
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"order_id":  orderID,
		"item_id":   itemID,
		"quantity":  quantity,
		"line_qty":  lineQty,
		"available": available,
	}).Info("item added to order")

	s.afterCommit(ctx, itemID, available)
	s.publish(ctx, domain.StockReserved{ItemID: itemID, Quantity: quantity, Available: available})
	s.publish(ctx, domain.LineAdded{OrderID: orderID, ItemID: itemID, AddedQty: quantity, LineQuantity: lineQty})

	return line, nil
}

// RemoveItemFromOrder deletes the line for itemID and releases its full
// reserved quantity within the same transaction.
func (s *OrderService) RemoveItemFromOrder(ctx context.Context, orderID, itemID int64) error {
	var (
		released  int
		available int
	)

	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		order, err := tx.OrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		removed, err := order.RemoveLine(itemID)
		if err != nil {
			return err
		}
		if err := tx.DeleteOrderLine(ctx, removed.ID); err != nil {
			return fmt.Errorf("delete order line: %w", err)
		}

		item, err := s.ledger.ReleaseInTx(ctx, tx, itemID, removed.Quantity)
		if err != nil {
			return err
		}

		released = removed.Quantity
		available = item.Available()
		return nil
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"order_id": orderID,
		"item_id":  itemID,
		"released": released,
	}).Info("item removed from order")

	s.afterCommit(ctx, itemID, available)
	s.publish(ctx, domain.LineRemoved{OrderID: orderID, ItemID: itemID, ReleasedQty: released})

	return nil
}

// FinalizeOrder closes the order against further line mutation.
func (s *OrderService) FinalizeOrder(ctx context.Context, orderID int64) error {
	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		order, err := tx.OrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := order.Finalize(); err != nil {
			return err
		}
		return tx.UpdateOrderStatus(ctx, order)
	})
	if err != nil {
		return err
	}

	log.WithField("order_id", orderID).Info("order finalized")
	s.publish(ctx, domain.OrderClosed{OrderID: orderID})
	return nil
}

// GetOrder returns the order with its lines, read-only.
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.store.GetOrder(ctx, orderID)
}

func (s *OrderService) afterCommit(ctx context.Context, itemID int64, available int) {
	if err := s.cache.SetAvailable(ctx, itemID, available); err != nil {
		log.WithError(err).WithField("item_id", itemID).Warn("availability cache refresh failed")
	}
}

func (s *OrderService) publish(ctx context.Context, event port.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		log.WithError(err).WithField("event", event.Type()).Warn("event publish failed")
	}
}
