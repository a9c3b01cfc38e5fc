package domain

type LineAdded struct {
	OrderID      int64
	ItemID       int64
	AddedQty     int
	LineQuantity int
}

func (e LineAdded) Type() string { return "LineAdded" }

type LineRemoved struct {
	OrderID     int64
	ItemID      int64
	ReleasedQty int
}

func (e LineRemoved) Type() string { return "LineRemoved" }

type StockReserved struct {
	ItemID    int64
	Quantity  int
	Available int
}

func (e StockReserved) Type() string { return "StockReserved" }

type StockReleased struct {
	ItemID    int64
	Quantity  int
	Available int
}

func (e StockReleased) Type() string { return "StockReleased" }

type OrderClosed struct {
	OrderID int64
}

func (e OrderClosed) Type() string { return "OrderClosed" }
