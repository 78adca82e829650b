package transaction

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/errors"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/event"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/transaction"
	"github.com/google/uuid"
)

// MarkShipped is the seller handing the item over for delivery.
func (s *Service) MarkShipped(ctx context.Context, id uuid.UUID, actorID, trackingCode string) (*transaction.Transaction, error) {
	t, previous, err := s.apply(ctx, "ship", id, func(t *transaction.Transaction) error {
		if actorID != t.SellerID {
			return domainErrors.ErrForbidden
		}
		return t.MarkShipped(trackingCode)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("transaction_id", id.String()).Str("tracking_code", trackingCode).Msg("Transaction shipped")
	s.publishUpdate(ctx, t, previous)
	s.notify(ctx, t.BuyerID, "Item shipped",
		fmt.Sprintf("%q is on its way. Tracking code: %s", t.ItemTitle, trackingCode),
		event.NotificationTransaction, t)
	return t, nil
}

// ConfirmReceipt is the buyer closing the purchase; the item becomes SOLD.
func (s *Service) ConfirmReceipt(ctx context.Context, id uuid.UUID, actorID string) (*transaction.Transaction, error) {
	t, previous, err := s.apply(ctx, "confirm", id, func(t *transaction.Transaction) error {
		if actorID != t.BuyerID {
			return domainErrors.ErrForbidden
		}
		return t.MarkCompleted()
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("transaction_id", id.String()).Msg("Transaction completed")
	s.publishLifecycle(ctx, t, event.TransactionCompleted, s.cfg.Messaging.TransactionCompletedKey, "")
	s.publishUpdate(ctx, t, previous)
	s.notify(ctx, t.SellerID, "Purchase completed",
		fmt.Sprintf("The buyer confirmed receipt of %q.", t.ItemTitle),
		event.NotificationTransaction, t)
	return t, nil
}

// Cancel is a participant abandoning a non-terminal transaction.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actorID, reason string) (*transaction.Transaction, error) {
	if reason == "" {
		reason = "Cancelled by participant"
	}
	t, previous, err := s.apply(ctx, "cancel", id, func(t *transaction.Transaction) error {
		if !t.IsParticipant(actorID) {
			return domainErrors.ErrForbidden
		}
		return t.Cancel(actorID, reason)
	})
	if err != nil {
		return nil, err
	}

	s.afterCancel(ctx, t, previous, reason)
	s.notify(ctx, t.Counterparty(actorID), "Purchase cancelled",
		fmt.Sprintf("The purchase of %q was cancelled: %s", t.ItemTitle, reason),
		event.NotificationTransaction, t)
	return t, nil
}

// Expire cancels a transaction whose deadline passed. It re-checks the
// deadline on the freshly loaded row, so a transaction that moved on since it
// was listed is left alone and reported as not expired.
func (s *Service) Expire(ctx context.Context, id uuid.UUID) (bool, error) {
	const reason = "Transaction expired"
	now := s.now()
	t, previous, err := s.apply(ctx, "expire", id, func(t *transaction.Transaction) error {
		if !t.IsExpired(now) {
			return errNoChange
		}
		return t.Cancel(transaction.CancelledBySystem, reason)
	})
	if errors.Is(err, errNoChange) {
		s.recordNoop("expire")
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.afterCancel(ctx, t, previous, reason)
	s.notify(ctx, t.BuyerID, "Purchase expired",
		fmt.Sprintf("Your purchase of %q expired and was cancelled.", t.ItemTitle),
		event.NotificationTransaction, t)
	return true, nil
}

// afterCancel releases the item and returns money already collected.
func (s *Service) afterCancel(ctx context.Context, t *transaction.Transaction, previous transaction.Status, reason string) {
	s.logger.Info().
		Str("transaction_id", t.ID.String()).
		Str("cancelled_by", *t.CancelledBy).
		Str("previous_status", string(previous)).
		Msg("Transaction cancelled")

	s.publishLifecycle(ctx, t, event.TransactionCancelled, s.cfg.Messaging.TransactionCancelledKey, reason)
	s.publishUpdate(ctx, t, previous)
	if t.IsPaid() && t.PaymentID != nil {
		s.requestRefund(ctx, t, *t.PaymentID, t.TotalAmount, s.cfg.Currency, reason)
	}
}
