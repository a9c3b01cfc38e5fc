package domain

import "time"

// Item is a stock-carrying good. OnHand and Reserved are the stored stock
// components; available stock is always derived from them, never stored.
type Item struct {
	ID         int64     `db:"id"`
	Name       string    `db:"name"`
	CategoryID *int64    `db:"category_id"`
	PriceCents int64     `db:"price_cents"`
	OnHand     int       `db:"on_hand"`
	Reserved   int       `db:"reserved"`
	Version    int       `db:"version"` // optimistic locking
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Available returns on-hand stock not yet reserved for any open order.
func (i *Item) Available() int {
	return i.OnHand - i.Reserved
}

// Reserve marks quantity units as held for an open order. It mutates
// nothing on failure.
func (i *Item) Reserve(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if i.Available() < quantity {
		return &InsufficientStockError{
			ItemID:    i.ID,
			Requested: quantity,
			Available: i.Available(),
		}
	}
	i.Reserved += quantity
	return nil
}

// Release returns previously reserved units, never dropping Reserved
// below zero.
func (i *Item) Release(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if i.Reserved < quantity {
		return ErrInvalidRelease
	}
	i.Reserved -= quantity
	return nil
}
