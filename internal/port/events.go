package port

import "context"

// Event is a post-commit notification about a stock or order change.
type Event interface {
	Type() string
}

// EventPublisher delivers events to interested consumers. Publishing is
// best effort and happens only after the owning transaction committed.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
