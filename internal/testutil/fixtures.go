package testutil

import (
	"time"

	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/item"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/transaction"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/config"
	"github.com/google/uuid"
)

const (
	BuyerID  = "buyer-1"
	SellerID = "seller-1"
	ItemID   = "item-1"
)

func NewTestItem(status item.Status, price int64) *item.Item {
	now := time.Now()
	return &item.Item{
		ID:        ItemID,
		SellerID:  SellerID,
		Title:     "Used bicycle",
		Price:     price,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestTransaction returns a transaction in status with a deadline in the future.
func NewTestTransaction(status transaction.Status, totalAmount int64) *transaction.Transaction {
	now := time.Now()
	expires := now.Add(15 * time.Minute)
	return &transaction.Transaction{
		ID:             uuid.New(),
		ItemID:         ItemID,
		ItemTitle:      "Used bicycle",
		BuyerID:        BuyerID,
		SellerID:       SellerID,
		Quantity:       1,
		UnitPrice:      totalAmount,
		TotalAmount:    totalAmount,
		DeliveryMethod: transaction.DeliveryShipping,
		Status:         status,
		ExpiresAt:      &expires,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Messaging returns the default topology names.
func Messaging() config.MessagingConfig {
	return config.MessagingConfig{
		SagaExchange:             "reusehub.saga",
		NotificationExchange:     "reusehub.notification",
		DeadLetterExchange:       "reusehub.dlx",
		ItemProcessQueue:         "item.process",
		ItemPaymentBoostQueue:    "item.payment.boost",
		TransactionReservedQ:     "transaction.update.reserved",
		TransactionFailedQ:       "transaction.update.failed",
		TransactionPaymentQ:      "transaction.payment",
		PaymentRefundQueue:       "payment.refund",
		NotificationQueue:        "notification.user",
		TransactionUpdateQueue:   "transaction.updates",
		TransactionCreatedKey:    "transaction.created",
		TransactionCancelledKey:  "transaction.cancelled",
		TransactionCompletedKey:  "transaction.completed",
		ItemReservedKey:          "item.reserved",
		ItemReservationFailedKey: "item.reservation-failed",
		PaymentCompletedKey:      "payment.completed",
		PaymentFailedKey:         "payment.failed",
		RefundRequestedKey:       "payment.refund-requested",
		NotificationKey:          "notification.user",
		TransactionUpdatedKey:    "transaction.updated",
	}
}
