package domain

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrItemNotFound     = errors.New("item not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrOrderFinalized   = errors.New("order is finalized")
	ErrDuplicateLine    = errors.New("order already has a line for this item")
	ErrLineNotFound     = errors.New("order line not found")
	ErrCycleDetected    = errors.New("category parent chain contains a cycle")
	ErrInvalidRelease   = errors.New("release exceeds reserved quantity")
	ErrInvalidQuantity  = errors.New("quantity must be a positive number")
)

// InsufficientStockError carries the requested and available quantities
// so callers can report both. Match with errors.As.
type InsufficientStockError struct {
	ItemID    int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %d: requested %d, available %d",
		e.ItemID, e.Requested, e.Available)
}
