package transaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/event"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/transaction"
)

// OnPaymentResult records the outcome of a payment for an unpaid
// PAYMENT_PENDING transaction. A success leaves the status unchanged but makes
// the transaction shippable; a failure cancels it and releases the item.
// A success that arrives for a transaction that can no longer take it is
// refunded. Everything else is a no-op.
func (s *Service) OnPaymentResult(ctx context.Context, ev event.PaymentEvent, succeeded bool) error {
	op := "payment_failed"
	if succeeded {
		op = "payment_completed"
	}
	id, err := parseTransactionID(ev.LinkedTransactionID)
	if err != nil {
		return err
	}

	reason := ev.Message
	if reason == "" {
		reason = "Payment failed"
	}

	var refund bool
	t, previous, err := s.apply(ctx, op, id, func(t *transaction.Transaction) error {
		refund = false
		if t.Status == transaction.StatusPaymentPending && !t.IsPaid() {
			if !succeeded {
				return t.Cancel(transaction.CancelledBySystem, reason)
			}
			if ev.Amount != t.TotalAmount {
				s.logger.Warn().
					Str("transaction_id", t.ID.String()).
					Int64("expected", t.TotalAmount).
					Int64("paid", ev.Amount).
					Msg("Payment amount differs from transaction total")
			}
			return t.MarkPaid(ev.PaymentID)
		}
		refund = succeeded && (t.PaymentID == nil || *t.PaymentID != ev.PaymentID)
		return errNoChange
	})
	if errors.Is(err, errNoChange) {
		s.recordNoop(op)
		if refund {
			s.requestRefund(ctx, t, ev.PaymentID, ev.Amount, ev.Currency,
				fmt.Sprintf("payment received for transaction in status %s", t.Status))
			return nil
		}
		s.logger.Debug().Str("transaction_id", ev.LinkedTransactionID).Str("status", string(t.Status)).
			Msg("Payment result ignored")
		return nil
	}
	if err != nil {
		return err
	}

	s.publishUpdate(ctx, t, previous)

	if succeeded {
		s.logger.Info().Str("transaction_id", ev.LinkedTransactionID).Str("payment_id", ev.PaymentID).Msg("Payment recorded")
		s.notify(ctx, t.BuyerID, "Payment confirmed",
			fmt.Sprintf("Your payment for %q was received.", t.ItemTitle),
			event.NotificationPayment, t)
		s.notify(ctx, t.SellerID, "Ready to ship",
			fmt.Sprintf("The buyer paid for %q. Please ship it.", t.ItemTitle),
			event.NotificationTransaction, t)
		return nil
	}

	s.logger.Info().Str("transaction_id", ev.LinkedTransactionID).Str("reason", reason).Msg("Transaction cancelled, payment failed")
	s.publishLifecycle(ctx, t, event.TransactionCancelled, s.cfg.Messaging.TransactionCancelledKey, reason)
	s.notify(ctx, t.BuyerID, "Payment failed",
		fmt.Sprintf("Your purchase of %q was cancelled: %s", t.ItemTitle, reason),
		event.NotificationPayment, t)
	return nil
}
