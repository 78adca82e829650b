package payment

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for payment persistence
type Repository interface {
	// Create creates a new payment
	Create(ctx context.Context, payment *Payment) error

	// GetByID returns ErrPaymentNotFound when the payment does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// Update persists p only if the stored status still equals expected.
	// Returns ErrStatusConflict otherwise.
	Update(ctx context.Context, p *Payment, expected Status) error
}
