package transaction

import (
	"math"
	"time"

	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/errors"
	"github.com/google/uuid"
)

// Status represents the transaction status in the purchase state machine
type Status string

const (
	StatusPending        Status = "PENDING"
	StatusPaymentPending Status = "PAYMENT_PENDING"
	StatusReserved       Status = "RESERVED"
	StatusDelivery       Status = "DELIVERY"
	StatusCompleted      Status = "COMPLETED"
	StatusCancelled      Status = "CANCELLED"
)

// DeliveryMethod is how the item reaches the buyer.
type DeliveryMethod string

const (
	DeliveryPickup   DeliveryMethod = "PICKUP"
	DeliveryShipping DeliveryMethod = "SHIPPING"
)

// MaxQuantity bounds a single purchase.
const MaxQuantity = 1000

// CancelledBySystem marks cancellations not made by a participant.
const CancelledBySystem = "SYSTEM"

// ActiveStatuses are the non-terminal statuses. At most one transaction per
// (item, buyer) may be in one of these.
var ActiveStatuses = []Status{StatusPending, StatusPaymentPending, StatusReserved, StatusDelivery}

var transitions = map[Status][]Status{
	StatusPending:        {StatusPaymentPending, StatusReserved, StatusCancelled},
	StatusPaymentPending: {StatusDelivery, StatusCancelled},
	StatusReserved:       {StatusDelivery, StatusCancelled},
	StatusDelivery:       {StatusCompleted, StatusCancelled},
	StatusCompleted:      {},
	StatusCancelled:      {},
}

// Transaction is the purchase aggregate.
type Transaction struct {
	ID                   uuid.UUID
	ItemID               string
	ItemTitle            string
	BuyerID              string
	SellerID             string
	Quantity             int
	UnitPrice            int64
	TotalAmount          int64
	DeliveryMethod       DeliveryMethod
	Status               Status
	CancelledBy          *string
	CancelReason         *string
	DeliveryTrackingCode *string
	PaymentID            *string
	PaidAt               *time.Time
	ExpiresAt            *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
	CompletedAt          *time.Time
	CancelledAt          *time.Time
	Version              int // Optimistic locking
}

// NewTransaction creates a PENDING transaction that expires after ttl.
func NewTransaction(
	itemID, itemTitle, buyerID, sellerID string,
	quantity int,
	unitPrice int64,
	method DeliveryMethod,
	ttl time.Duration,
) (*Transaction, error) {
	if itemID == "" {
		return nil, errors.NewValidationError("itemId", "is required")
	}
	if buyerID == "" {
		return nil, errors.NewValidationError("buyerId", "is required")
	}
	if buyerID == sellerID {
		return nil, errors.InvalidData("buyer cannot purchase their own item", errors.ErrSelfPurchase)
	}
	if quantity < 1 {
		return nil, errors.NewValidationError("quantity", "must be at least 1")
	}
	if quantity > MaxQuantity {
		return nil, errors.NewValidationError("quantity", "must be at most 1000")
	}
	if unitPrice < 0 {
		return nil, errors.NewValidationError("unitPrice", "cannot be negative")
	}
	if unitPrice > 0 && int64(quantity) > math.MaxInt64/unitPrice {
		return nil, errors.NewValidationError("quantity", "total amount overflows")
	}
	if method != DeliveryPickup && method != DeliveryShipping {
		return nil, errors.NewValidationError("deliveryMethod", "must be PICKUP or SHIPPING")
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	return &Transaction{
		ID:             uuid.New(),
		ItemID:         itemID,
		ItemTitle:      itemTitle,
		BuyerID:        buyerID,
		SellerID:       sellerID,
		Quantity:       quantity,
		UnitPrice:      unitPrice,
		TotalAmount:    unitPrice * int64(quantity),
		DeliveryMethod: method,
		Status:         StatusPending,
		ExpiresAt:      &expiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// CanTransitionTo reports whether newStatus is a legal edge from the current status.
func (t *Transaction) CanTransitionTo(newStatus Status) bool {
	for _, allowed := range transitions[t.Status] {
		if allowed == newStatus {
			return true
		}
	}
	return false
}

func (t *Transaction) transitionTo(newStatus Status) error {
	if !t.CanTransitionTo(newStatus) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(t.Status)+" to "+string(newStatus),
			errors.ErrInvalidStateTransition,
		)
	}
	t.Status = newStatus
	t.UpdatedAt = time.Now()
	return nil
}

// IsTerminal reports whether the transaction can no longer change.
func (t *Transaction) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusCancelled
}

// IsPaid reports whether a payment has been recorded.
func (t *Transaction) IsPaid() bool {
	return t.PaidAt != nil
}

// RequiresPayment reports whether the purchase has a payment step.
func (t *Transaction) RequiresPayment() bool {
	return t.TotalAmount > 0
}

// CanShip reports whether the seller may mark the item as shipped.
func (t *Transaction) CanShip() bool {
	return t.Status == StatusReserved || (t.Status == StatusPaymentPending && t.IsPaid())
}

// IsParticipant reports whether userID is the buyer or the seller.
func (t *Transaction) IsParticipant(userID string) bool {
	return userID != "" && (userID == t.BuyerID || userID == t.SellerID)
}

// Counterparty returns the other participant for actorID.
func (t *Transaction) Counterparty(actorID string) string {
	if actorID == t.SellerID {
		return t.BuyerID
	}
	return t.SellerID
}

// MarkReservationConfirmed moves a PENDING transaction forward once the item
// is held: to PAYMENT_PENDING when money is owed, otherwise to RESERVED.
func (t *Transaction) MarkReservationConfirmed(paymentTTL time.Duration) error {
	if t.RequiresPayment() {
		if err := t.transitionTo(StatusPaymentPending); err != nil {
			return err
		}
		expiresAt := time.Now().Add(paymentTTL)
		t.ExpiresAt = &expiresAt
		return nil
	}
	if err := t.transitionTo(StatusReserved); err != nil {
		return err
	}
	t.ExpiresAt = nil
	return nil
}

// MarkPaid records a successful payment. Status stays PAYMENT_PENDING; the
// transaction becomes eligible for shipment and stops expiring.
func (t *Transaction) MarkPaid(paymentID string) error {
	if t.Status != StatusPaymentPending || t.IsPaid() {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot record payment in status "+string(t.Status),
			errors.ErrInvalidStateTransition,
		)
	}
	now := time.Now()
	t.PaymentID = &paymentID
	t.PaidAt = &now
	t.ExpiresAt = nil
	t.UpdatedAt = now
	return nil
}

// MarkShipped moves the transaction to DELIVERY.
func (t *Transaction) MarkShipped(trackingCode string) error {
	if !t.CanShip() {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot ship transaction in status "+string(t.Status),
			errors.ErrInvalidStateTransition,
		)
	}
	if err := t.transitionTo(StatusDelivery); err != nil {
		return err
	}
	t.DeliveryTrackingCode = &trackingCode
	return nil
}

// MarkCompleted moves the transaction to COMPLETED.
func (t *Transaction) MarkCompleted() error {
	if err := t.transitionTo(StatusCompleted); err != nil {
		return err
	}
	now := time.Now()
	t.CompletedAt = &now
	t.ExpiresAt = nil
	return nil
}

// Cancel moves any non-terminal transaction to CANCELLED.
func (t *Transaction) Cancel(cancelledBy, reason string) error {
	if t.IsTerminal() {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot cancel transaction in status "+string(t.Status),
			errors.ErrTransactionTerminal,
		)
	}
	if err := t.transitionTo(StatusCancelled); err != nil {
		return err
	}
	now := time.Now()
	t.CancelledBy = &cancelledBy
	t.CancelReason = &reason
	t.CancelledAt = &now
	t.ExpiresAt = nil
	return nil
}

// IsExpired reports whether an unpaid PENDING/PAYMENT_PENDING transaction is past its deadline.
func (t *Transaction) IsExpired(now time.Time) bool {
	if t.Status != StatusPending && t.Status != StatusPaymentPending {
		return false
	}
	if t.IsPaid() || t.ExpiresAt == nil {
		return false
	}
	return t.ExpiresAt.Before(now)
}
