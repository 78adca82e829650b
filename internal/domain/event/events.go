// Package event holds the message contracts exchanged between the
// transaction, item and payment services. Values are built once by the
// constructors below and never modified afterwards.
package event

import (
	"time"

	"github.com/google/uuid"
)

// TransactionEventType is the lifecycle step carried by a TransactionEventMessage.
type TransactionEventType string

const (
	TransactionCreated   TransactionEventType = "CREATED"
	TransactionCancelled TransactionEventType = "CANCELLED"
	TransactionCompleted TransactionEventType = "COMPLETED"
)

// Notification types
const (
	NotificationTransaction = "TRANSACTION"
	NotificationPayment     = "PAYMENT"
)

// ItemReservationEvent is the item-service reply to a transaction.created event.
type ItemReservationEvent struct {
	EventID       string    `json:"eventId"`
	TransactionID string    `json:"transactionId"`
	ItemID        string    `json:"itemId"`
	Success       bool      `json:"success"`
	Message       string    `json:"message,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

func NewItemReserved(transactionID, itemID string) ItemReservationEvent {
	return ItemReservationEvent{
		EventID:       uuid.NewString(),
		TransactionID: transactionID,
		ItemID:        itemID,
		Success:       true,
		Message:       "Item reserved",
		OccurredAt:    time.Now().UTC(),
	}
}

func NewItemReservationFailed(transactionID, itemID, reason string) ItemReservationEvent {
	return ItemReservationEvent{
		EventID:       uuid.NewString(),
		TransactionID: transactionID,
		ItemID:        itemID,
		Success:       false,
		Message:       reason,
		OccurredAt:    time.Now().UTC(),
	}
}

// PaymentEvent is produced once per payment attempt resolution.
type PaymentEvent struct {
	EventID             string    `json:"eventId"`
	PaymentID           string    `json:"paymentId"`
	UserID              string    `json:"userId"`
	LinkedItemID        string    `json:"linkedItemId,omitempty"`
	LinkedTransactionID string    `json:"linkedTransactionId,omitempty"`
	Amount              int64     `json:"amount"`
	Currency            string    `json:"currency"`
	Message             string    `json:"message,omitempty"`
	OccurredAt          time.Time `json:"occurredAt"`
}

// PaymentInfo is the input for NewPaymentEvent.
type PaymentInfo struct {
	PaymentID           string
	UserID              string
	LinkedItemID        string
	LinkedTransactionID string
	Amount              int64
	Currency            string
	Message             string
}

func NewPaymentEvent(p PaymentInfo) PaymentEvent {
	return PaymentEvent{
		EventID:             uuid.NewString(),
		PaymentID:           p.PaymentID,
		UserID:              p.UserID,
		LinkedItemID:        p.LinkedItemID,
		LinkedTransactionID: p.LinkedTransactionID,
		Amount:              p.Amount,
		Currency:            p.Currency,
		Message:             p.Message,
		OccurredAt:          time.Now().UTC(),
	}
}

// TransactionEventMessage announces a lifecycle step on the saga exchange.
type TransactionEventMessage struct {
	EventID       string               `json:"eventId"`
	EventType     TransactionEventType `json:"eventType"`
	TransactionID string               `json:"transactionId"`
	BuyerID       string               `json:"buyerId"`
	SellerID      string               `json:"sellerId"`
	ItemID        string               `json:"itemId"`
	ItemTitle     string               `json:"itemTitle,omitempty"`
	Quantity      int                  `json:"quantity"`
	TotalAmount   int64                `json:"totalAmount"`
	Status        string               `json:"status"`
	Message       string               `json:"message,omitempty"`
	OccurredAt    time.Time            `json:"occurredAt"`
}

// TransactionSnapshot is the input for NewTransactionEvent and NewTransactionUpdate.
type TransactionSnapshot struct {
	TransactionID string
	BuyerID       string
	SellerID      string
	ItemID        string
	ItemTitle     string
	Quantity      int
	TotalAmount   int64
	Status        string
}

func NewTransactionEvent(eventType TransactionEventType, s TransactionSnapshot, message string) TransactionEventMessage {
	return TransactionEventMessage{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		TransactionID: s.TransactionID,
		BuyerID:       s.BuyerID,
		SellerID:      s.SellerID,
		ItemID:        s.ItemID,
		ItemTitle:     s.ItemTitle,
		Quantity:      s.Quantity,
		TotalAmount:   s.TotalAmount,
		Status:        s.Status,
		Message:       message,
		OccurredAt:    time.Now().UTC(),
	}
}

// TransactionUpdateEvent feeds UI collaborators with every status change.
type TransactionUpdateEvent struct {
	EventID        string    `json:"eventId"`
	TransactionID  string    `json:"transactionId"`
	BuyerID        string    `json:"buyerId"`
	SellerID       string    `json:"sellerId"`
	PreviousStatus string    `json:"previousStatus"`
	Status         string    `json:"status"`
	OccurredAt     time.Time `json:"occurredAt"`
}

func NewTransactionUpdate(s TransactionSnapshot, previousStatus string) TransactionUpdateEvent {
	return TransactionUpdateEvent{
		EventID:        uuid.NewString(),
		TransactionID:  s.TransactionID,
		BuyerID:        s.BuyerID,
		SellerID:       s.SellerID,
		PreviousStatus: previousStatus,
		Status:         s.Status,
		OccurredAt:     time.Now().UTC(),
	}
}

// NotificationMessage asks the notification collaborator to tell a user something.
type NotificationMessage struct {
	EventID         string    `json:"eventId"`
	RecipientUserID string    `json:"recipientUserId"`
	Title           string    `json:"title"`
	Message         string    `json:"message"`
	Type            string    `json:"type"`
	CorrelationID   string    `json:"correlationId,omitempty"`
	OccurredAt      time.Time `json:"occurredAt"`
}

func NewNotification(recipientUserID, title, message, notificationType, correlationID string) NotificationMessage {
	return NotificationMessage{
		EventID:         uuid.NewString(),
		RecipientUserID: recipientUserID,
		Title:           title,
		Message:         message,
		Type:            notificationType,
		CorrelationID:   correlationID,
		OccurredAt:      time.Now().UTC(),
	}
}

// RefundRequestedEvent asks the payment service to return money for a
// transaction that was cancelled after (or while) it was paid.
type RefundRequestedEvent struct {
	EventID       string    `json:"eventId"`
	PaymentID     string    `json:"paymentId"`
	TransactionID string    `json:"transactionId"`
	UserID        string    `json:"userId"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency,omitempty"`
	Reason        string    `json:"reason"`
	OccurredAt    time.Time `json:"occurredAt"`
}

func NewRefundRequested(paymentID, transactionID, userID string, amount int64, currency, reason string) RefundRequestedEvent {
	return RefundRequestedEvent{
		EventID:       uuid.NewString(),
		PaymentID:     paymentID,
		TransactionID: transactionID,
		UserID:        userID,
		Amount:        amount,
		Currency:      currency,
		Reason:        reason,
		OccurredAt:    time.Now().UTC(),
	}
}

// MessageID is the broker message id used when the event is published.
func (e ItemReservationEvent) MessageID() string { return e.EventID }

func (e PaymentEvent) MessageID() string { return e.EventID }

func (e TransactionEventMessage) MessageID() string { return e.EventID }

func (e TransactionUpdateEvent) MessageID() string { return e.EventID }

func (e NotificationMessage) MessageID() string { return e.EventID }

func (e RefundRequestedEvent) MessageID() string { return e.EventID }
