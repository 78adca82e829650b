package providers

import (
	"context"
)

// Result holds the outcome of an external provider call.
type Result struct {
	ProviderReference string
	Status            string // "success", "failed"
	ErrorMessage      string
}

// Provider is the interface that external payment gateways implement.
type Provider interface {
	// Name returns the provider name.
	Name() string
	// Charge collects money from the payer.
	Charge(ctx context.Context, req ChargeRequest) (*Result, error)
	// Refund returns a previously collected charge.
	Refund(ctx context.Context, req RefundRequest) (*Result, error)
}

type ChargeRequest struct {
	PaymentID string
	UserID    string
	Amount    int64 // minor units
	Currency  string
	Reference string // transaction or item id the charge pays for
}

type RefundRequest struct {
	PaymentID     string
	TransactionID string
	Amount        int64
	Currency      string
	Reason        string
}
