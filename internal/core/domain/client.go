package domain

import "time"

// Client is the customer an order belongs to. Orders reference clients by
// id; no client operations are part of the core.
type Client struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Address   string    `db:"address"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
