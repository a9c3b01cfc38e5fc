package port

import "context"

// AvailabilityCache holds the derived available quantity per item for the
// read path. It is refreshed after commit, best effort; the database stays
// the source of truth.
type AvailabilityCache interface {
	// GetAvailable returns (quantity, true) on a hit, (0, false) on a miss.
	GetAvailable(ctx context.Context, itemID int64) (int, bool, error)

	SetAvailable(ctx context.Context, itemID int64, quantity int) error

	Invalidate(ctx context.Context, itemID int64) error
}
