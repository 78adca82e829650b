package item

import (
	"context"
	"time"
)

// Repository defines the interface for item persistence
type Repository interface {
	Create(ctx context.Context, item *Item) error

	// GetByID returns ErrItemNotFound when the item does not exist.
	GetByID(ctx context.Context, id string) (*Item, error)

	// Reserve moves an AVAILABLE item to RESERVED held by transactionID.
	// Returns false when the item was not AVAILABLE.
	Reserve(ctx context.Context, id, transactionID string) (bool, error)

	// Release moves an item RESERVED by transactionID back to AVAILABLE.
	// Returns false when the item is not held by transactionID.
	Release(ctx context.Context, id, transactionID string) (bool, error)

	// MarkSold moves an item RESERVED by transactionID to SOLD.
	// Returns false when the item is not held by transactionID.
	MarkSold(ctx context.Context, id, transactionID string) (bool, error)

	// SetBoostedUntil stores the promotion window end.
	SetBoostedUntil(ctx context.Context, id string, until time.Time) error
}
