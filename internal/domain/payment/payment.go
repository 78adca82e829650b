package payment

import (
	"time"

	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/errors"
	"github.com/google/uuid"
)

// Status represents the payment status in the state machine
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusRefunded  Status = "REFUNDED"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusCompleted, StatusFailed},
	StatusCompleted: {StatusRefunded},
	StatusFailed:    {},
	StatusRefunded:  {},
}

// Payment is one charge attempt against a provider. It pays either for a
// purchase (TransactionID) or for an item boost (ItemID only).
type Payment struct {
	ID                uuid.UUID
	UserID            string
	TransactionID     *string
	ItemID            *string
	Amount            int64 // minor units
	Currency          string
	Provider          string
	ProviderReference *string
	Status            Status
	FailureReason     *string
	RefundReason      *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	CompletedAt       *time.Time
	RefundedAt        *time.Time
}

// NewPayment creates a PENDING payment.
func NewPayment(userID string, transactionID, itemID *string, amount int64, currency, provider string) (*Payment, error) {
	if userID == "" {
		return nil, errors.NewValidationError("userId", "is required")
	}
	if transactionID == nil && itemID == nil {
		return nil, errors.NewValidationError("transactionId", "transactionId or itemId is required")
	}
	if err := validateAmount(amount, currency); err != nil {
		return nil, err
	}
	if provider == "" {
		return nil, errors.NewValidationError("provider", "is required")
	}

	now := time.Now()
	return &Payment{
		ID:            uuid.New(),
		UserID:        userID,
		TransactionID: transactionID,
		ItemID:        itemID,
		Amount:        amount,
		Currency:      currency,
		Provider:      provider,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// CanTransitionTo checks if the payment can transition to the given status
func (p *Payment) CanTransitionTo(newStatus Status) bool {
	for _, allowed := range transitions[p.Status] {
		if allowed == newStatus {
			return true
		}
	}
	return false
}

func (p *Payment) transitionTo(newStatus Status) error {
	if !p.CanTransitionTo(newStatus) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(p.Status)+" to "+string(newStatus),
			errors.ErrInvalidStateTransition,
		)
	}
	p.Status = newStatus
	p.UpdatedAt = time.Now()
	return nil
}

// MarkCompleted records the provider's acceptance.
func (p *Payment) MarkCompleted(providerReference string) error {
	if err := p.transitionTo(StatusCompleted); err != nil {
		return err
	}
	now := time.Now()
	p.ProviderReference = &providerReference
	p.CompletedAt = &now
	return nil
}

func (p *Payment) MarkFailed(reason string) error {
	if err := p.transitionTo(StatusFailed); err != nil {
		return err
	}
	now := time.Now()
	p.FailureReason = &reason
	p.CompletedAt = &now
	return nil
}

func (p *Payment) MarkRefunded(reason string) error {
	if err := p.transitionTo(StatusRefunded); err != nil {
		return err
	}
	now := time.Now()
	p.RefundReason = &reason
	p.RefundedAt = &now
	return nil
}

// IsTerminal checks if the payment is in a terminal state
func (p *Payment) IsTerminal() bool {
	return p.Status == StatusFailed || p.Status == StatusRefunded
}

func validateAmount(amount int64, currency string) error {
	if amount <= 0 {
		return errors.NewValidationError("amount", "must be greater than 0")
	}
	if currency == "" {
		return errors.NewValidationError("currency", "cannot be empty")
	}
	// Simple currency validation (3-letter code)
	if len(currency) != 3 {
		return errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}
	return nil
}
