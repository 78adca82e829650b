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

func parseTransactionID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: transaction id %q", domainErrors.ErrMalformedMessage, raw)
	}
	return id, nil
}

// OnItemReserved advances a PENDING transaction once its item is held.
// Any other status leaves the transaction unchanged, so redeliveries are
// harmless. A reservation that lands after the transaction was cancelled
// would hold the item for nobody, so the cancellation is announced again
// and the item service releases it.
func (s *Service) OnItemReserved(ctx context.Context, ev event.ItemReservationEvent) error {
	const op = "item_reserved"
	id, err := parseTransactionID(ev.TransactionID)
	if err != nil {
		return err
	}

	t, previous, err := s.apply(ctx, op, id, func(t *transaction.Transaction) error {
		if t.Status != transaction.StatusPending {
			return errNoChange
		}
		return t.MarkReservationConfirmed(s.cfg.PaymentTimeout)
	})
	if errors.Is(err, errNoChange) {
		s.recordNoop(op)
		if t.Status == transaction.StatusCancelled {
			s.releaseLateReservation(ctx, t)
			return nil
		}
		s.logger.Debug().Str("transaction_id", ev.TransactionID).Str("status", string(t.Status)).
			Msg("Reservation reply ignored")
		return nil
	}
	if err != nil {
		return err
	}

	s.logger.Info().Str("transaction_id", ev.TransactionID).Str("status", string(t.Status)).Msg("Item reserved")
	s.publishUpdate(ctx, t, previous)

	if t.Status == transaction.StatusPaymentPending {
		s.notify(ctx, t.BuyerID, "Payment required",
			fmt.Sprintf("%q is reserved for you. Please complete payment of %d.", t.ItemTitle, t.TotalAmount),
			event.NotificationPayment, t)
	} else {
		s.notify(ctx, t.BuyerID, "Item reserved",
			fmt.Sprintf("%q is reserved for you.", t.ItemTitle),
			event.NotificationTransaction, t)
	}
	s.notify(ctx, t.SellerID, "New purchase request",
		fmt.Sprintf("A buyer wants %q.", t.ItemTitle),
		event.NotificationTransaction, t)
	return nil
}

// OnItemReservationFailed cancels a PENDING transaction whose item could not
// be reserved. Nothing was reserved, so no release is requested.
func (s *Service) OnItemReservationFailed(ctx context.Context, ev event.ItemReservationEvent) error {
	const op = "item_reservation_failed"
	id, err := parseTransactionID(ev.TransactionID)
	if err != nil {
		return err
	}

	reason := ev.Message
	if reason == "" {
		reason = "Item reservation failed"
	}

	t, previous, err := s.apply(ctx, op, id, func(t *transaction.Transaction) error {
		if t.Status != transaction.StatusPending {
			return errNoChange
		}
		return t.Cancel(transaction.CancelledBySystem, reason)
	})
	if errors.Is(err, errNoChange) {
		s.recordNoop(op)
		s.logger.Debug().Str("transaction_id", ev.TransactionID).Str("status", string(t.Status)).
			Msg("Reservation failure ignored")
		return nil
	}
	if err != nil {
		return err
	}

	s.logger.Info().Str("transaction_id", ev.TransactionID).Str("reason", reason).Msg("Transaction cancelled, reservation failed")
	s.publishUpdate(ctx, t, previous)
	s.notify(ctx, t.BuyerID, "Purchase cancelled",
		fmt.Sprintf("Your purchase of %q was cancelled: %s", t.ItemTitle, reason),
		event.NotificationTransaction, t)
	return nil
}

func (s *Service) releaseLateReservation(ctx context.Context, t *transaction.Transaction) {
	reason := "Transaction cancelled"
	if t.CancelReason != nil && *t.CancelReason != "" {
		reason = *t.CancelReason
	}
	s.logger.Warn().Str("transaction_id", t.ID.String()).Str("item_id", t.ItemID).
		Msg("Item reserved for cancelled transaction, requesting release")
	s.publishLifecycle(ctx, t, event.TransactionCancelled, s.cfg.Messaging.TransactionCancelledKey, reason)
}
