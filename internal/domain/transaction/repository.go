package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for transaction persistence
type Repository interface {
	// Create inserts a new transaction. Returns ErrActiveTransactionExists when
	// the (item, buyer) pair already has a non-terminal transaction.
	Create(ctx context.Context, t *Transaction) error

	// GetByID retrieves a transaction by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// FindActive returns the non-terminal transaction for (itemID, buyerID), or nil.
	FindActive(ctx context.Context, itemID, buyerID string) (*Transaction, error)

	// Update persists t only if the stored status still equals expected and
	// the stored version equals t.Version. On success t.Version is incremented.
	// Returns ErrStatusConflict otherwise.
	Update(ctx context.Context, t *Transaction, expected Status) error

	// ListExpired returns up to limit unpaid PENDING/PAYMENT_PENDING
	// transactions whose deadline is before now, oldest first.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*Transaction, error)
}
