package item

import (
	"time"

	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/errors"
	"github.com/google/uuid"
)

// Status is the reservation state of an item.
type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusReserved  Status = "RESERVED"
	StatusSold      Status = "SOLD"
)

// Item is the item-service projection the reservation handler owns.
type Item struct {
	ID                      string
	SellerID                string
	Title                   string
	Price                   int64
	Status                  Status
	ReservedByTransactionID *string
	BoostedUntil            *time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// NewItem creates an AVAILABLE listing.
func NewItem(sellerID, title string, price int64) (*Item, error) {
	if sellerID == "" {
		return nil, errors.NewValidationError("sellerId", "is required")
	}
	if title == "" {
		return nil, errors.NewValidationError("title", "is required")
	}
	if price < 0 {
		return nil, errors.NewValidationError("price", "cannot be negative")
	}
	now := time.Now()
	return &Item{
		ID:        uuid.New().String(),
		SellerID:  sellerID,
		Title:     title,
		Price:     price,
		Status:    StatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsHeldBy reports whether the item is RESERVED for transactionID.
func (i *Item) IsHeldBy(transactionID string) bool {
	return i.Status == StatusReserved &&
		i.ReservedByTransactionID != nil &&
		*i.ReservedByTransactionID == transactionID
}

// Boost extends the promotion window by d, starting from now or the current end.
func (i *Item) Boost(now time.Time, d time.Duration) time.Time {
	start := now
	if i.BoostedUntil != nil && i.BoostedUntil.After(now) {
		start = *i.BoostedUntil
	}
	until := start.Add(d)
	i.BoostedUntil = &until
	i.UpdatedAt = now
	return until
}
