package controller

import (
	"time"

	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/item"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/payment"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/transaction"
)

// --- Request DTOs ---
// Amounts are integer minor units of the configured currency.

// CreateTransactionRequest is a buyer's purchase intent.
type CreateTransactionRequest struct {
	ItemID         string `json:"itemId" validate:"required"`
	Quantity       int    `json:"quantity" validate:"required,gte=1,lte=1000"`
	DeliveryMethod string `json:"deliveryMethod" validate:"required,oneof=PICKUP SHIPPING"`
}

type ShipTransactionRequest struct {
	TrackingCode string `json:"trackingCode" validate:"required,max=100"`
}

type CancelTransactionRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type CreateItemRequest struct {
	Title string `json:"title" validate:"required,max=200"`
	Price int64  `json:"price" validate:"gte=0"`
}

// CreatePaymentRequest pays for a transaction, or boosts an item when only itemId is set.
type CreatePaymentRequest struct {
	TransactionID string `json:"transactionId" validate:"omitempty,uuid"`
	ItemID        string `json:"itemId"`
	Amount        int64  `json:"amount" validate:"required,gt=0"`
	Currency      string `json:"currency" validate:"omitempty,len=3"`
	Provider      string `json:"provider,omitempty"`
}

// --- Response DTOs ---

type TransactionResponse struct {
	ID                   string     `json:"id"`
	ItemID               string     `json:"itemId"`
	ItemTitle            string     `json:"itemTitle"`
	BuyerID              string     `json:"buyerId"`
	SellerID             string     `json:"sellerId"`
	Quantity             int        `json:"quantity"`
	UnitPrice            int64      `json:"unitPrice"`
	TotalAmount          int64      `json:"totalAmount"`
	DeliveryMethod       string     `json:"deliveryMethod"`
	Status               string     `json:"status"`
	Paid                 bool       `json:"paid"`
	PaymentID            *string    `json:"paymentId,omitempty"`
	DeliveryTrackingCode *string    `json:"deliveryTrackingCode,omitempty"`
	CancelledBy          *string    `json:"cancelledBy,omitempty"`
	CancelReason         *string    `json:"cancelReason,omitempty"`
	ExpiresAt            *time.Time `json:"expiresAt,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
	CompletedAt          *time.Time `json:"completedAt,omitempty"`
	CancelledAt          *time.Time `json:"cancelledAt,omitempty"`
}

// ItemResponse is also the body of the internal lookup used by the transaction service.
type ItemResponse struct {
	ID           string     `json:"id"`
	SellerID     string     `json:"sellerId"`
	Title        string     `json:"title"`
	Price        int64      `json:"price"`
	Status       string     `json:"status"`
	BoostedUntil *time.Time `json:"boostedUntil,omitempty"`
}

type PaymentResponse struct {
	ID                string     `json:"id"`
	UserID            string     `json:"userId"`
	TransactionID     *string    `json:"transactionId,omitempty"`
	ItemID            *string    `json:"itemId,omitempty"`
	Amount            int64      `json:"amount"`
	Currency          string     `json:"currency"`
	Provider          string     `json:"provider"`
	ProviderReference *string    `json:"providerReference,omitempty"`
	Status            string     `json:"status"`
	FailureReason     *string    `json:"failureReason,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Conversion helpers ---

func FromTransaction(t *transaction.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:                   t.ID.String(),
		ItemID:               t.ItemID,
		ItemTitle:            t.ItemTitle,
		BuyerID:              t.BuyerID,
		SellerID:             t.SellerID,
		Quantity:             t.Quantity,
		UnitPrice:            t.UnitPrice,
		TotalAmount:          t.TotalAmount,
		DeliveryMethod:       string(t.DeliveryMethod),
		Status:               string(t.Status),
		Paid:                 t.IsPaid(),
		PaymentID:            t.PaymentID,
		DeliveryTrackingCode: t.DeliveryTrackingCode,
		CancelledBy:          t.CancelledBy,
		CancelReason:         t.CancelReason,
		ExpiresAt:            t.ExpiresAt,
		CreatedAt:            t.CreatedAt,
		UpdatedAt:            t.UpdatedAt,
		CompletedAt:          t.CompletedAt,
		CancelledAt:          t.CancelledAt,
	}
}

func FromItem(i *item.Item) *ItemResponse {
	return &ItemResponse{
		ID:           i.ID,
		SellerID:     i.SellerID,
		Title:        i.Title,
		Price:        i.Price,
		Status:       string(i.Status),
		BoostedUntil: i.BoostedUntil,
	}
}

func FromPayment(p *payment.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:                p.ID.String(),
		UserID:            p.UserID,
		TransactionID:     p.TransactionID,
		ItemID:            p.ItemID,
		Amount:            p.Amount,
		Currency:          p.Currency,
		Provider:          p.Provider,
		ProviderReference: p.ProviderReference,
		Status:            string(p.Status),
		FailureReason:     p.FailureReason,
		CreatedAt:         p.CreatedAt,
		CompletedAt:       p.CompletedAt,
	}
}
