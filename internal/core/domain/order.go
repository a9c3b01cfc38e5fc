package domain

import "time"

type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusFinalized OrderStatus = "finalized"
)

// Order owns its lines. The aggregate enforces at most one line per
// distinct item and rejects mutation once finalized.
type Order struct {
	ID        int64       `db:"id"`
	ClientID  int64       `db:"client_id"`
	Status    OrderStatus `db:"status"`
	Version   int         `db:"version"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
	Lines     []OrderLine `db:"-"`
}

// OrderLine ties a quantity of one item to one order. UnitPriceCents is
// captured from the item when the line is first created.
type OrderLine struct {
	ID             int64     `db:"id"`
	OrderID        int64     `db:"order_id"`
	ItemID         int64     `db:"item_id"`
	Quantity       int       `db:"quantity"`
	UnitPriceCents int64     `db:"unit_price_cents"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (o *Order) IsOpen() bool {
	return o.Status == OrderStatusOpen
}

// FindLine returns the line for itemID, or nil when the order has none.
func (o *Order) FindLine(itemID int64) *OrderLine {
	for i := range o.Lines {
		if o.Lines[i].ItemID == itemID {
			return &o.Lines[i]
		}
	}
	return nil
}

// AddNewLine appends a line for an item not yet on the order. The caller
// is expected to have checked FindLine first; the duplicate check here is
// defensive.
func (o *Order) AddNewLine(itemID int64, quantity int, unitPriceCents int64) (*OrderLine, error) {
	if !o.IsOpen() {
		return nil, ErrOrderFinalized
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if o.FindLine(itemID) != nil {
		return nil, ErrDuplicateLine
	}
	now := time.Now().UTC()
	o.Lines = append(o.Lines, OrderLine{
		OrderID:        o.ID,
		ItemID:         itemID,
		Quantity:       quantity,
		UnitPriceCents: unitPriceCents,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	return &o.Lines[len(o.Lines)-1], nil
}

// IncreaseLineQuantity adds delta to the existing line for itemID.
func (o *Order) IncreaseLineQuantity(itemID int64, delta int) (*OrderLine, error) {
	if !o.IsOpen() {
		return nil, ErrOrderFinalized
	}
	if delta <= 0 {
		return nil, ErrInvalidQuantity
	}
	line := o.FindLine(itemID)
	if line == nil {
		return nil, ErrLineNotFound
	}
	line.Quantity += delta
	line.UpdatedAt = time.Now().UTC()
	return line, nil
}

// RemoveLine deletes the line for itemID and returns it so the caller can
// release its reserved stock.
func (o *Order) RemoveLine(itemID int64) (OrderLine, error) {
	if !o.IsOpen() {
		return OrderLine{}, ErrOrderFinalized
	}
	for i := range o.Lines {
		if o.Lines[i].ItemID == itemID {
			removed := o.Lines[i]
			o.Lines = append(o.Lines[:i], o.Lines[i+1:]...)
			return removed, nil
		}
	}
	return OrderLine{}, ErrLineNotFound
}

// Finalize closes the order against further line mutation.
func (o *Order) Finalize() error {
	if !o.IsOpen() {
		return ErrOrderFinalized
	}
	o.Status = OrderStatusFinalized
	o.UpdatedAt = time.Now().UTC()
	return nil
}
