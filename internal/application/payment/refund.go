package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainErrors "github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/errors"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/event"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/payment"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/providers"
	"github.com/google/uuid"
)

// Refund returns a completed payment. Refunding an already refunded payment
// is a no-op; a payment that never collected money is ignored.
func (s *Service) Refund(ctx context.Context, ev event.RefundRequestedEvent) error {
	start := time.Now()
	id, err := uuid.Parse(ev.PaymentID)
	if err != nil {
		return fmt.Errorf("%w: payment id %q", domainErrors.ErrMalformedMessage, ev.PaymentID)
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	log := s.logger.With().
		Str("payment_id", ev.PaymentID).
		Str("transaction_id", ev.TransactionID).
		Str("status", string(p.Status)).
		Logger()

	switch p.Status {
	case payment.StatusRefunded:
		log.Debug().Msg("Payment already refunded")
		return nil
	case payment.StatusCompleted:
	default:
		log.Warn().Msg("Refund requested for payment that collected nothing")
		return nil
	}

	reason := ev.Reason
	if reason == "" {
		reason = "Transaction cancelled"
	}
	if err := s.refund(ctx, p, reason); err != nil {
		if errors.Is(err, domainErrors.ErrStatusConflict) {
			log.Debug().Msg("Payment refunded concurrently")
			return nil
		}
		s.observe("refund", "error", start)
		return err
	}

	s.observe("refund", "refunded", start)
	log.Info().Int64("amount", p.Amount).Msg("Payment refunded")
	s.notifier.Notify(ctx, p.UserID, "Refund issued",
		fmt.Sprintf("%d %s is on its way back to you: %s", p.Amount, p.Currency, reason),
		event.NotificationPayment, p.ID.String())
	return nil
}

func (s *Service) refund(ctx context.Context, p *payment.Payment, reason string) error {
	provider, breaker, err := s.providers.Get(p.Provider)
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProcessingTimeout)
	defer cancel()
	_, err = breaker.Execute(func() (*providers.Result, error) {
		transactionID := ""
		if p.TransactionID != nil {
			transactionID = *p.TransactionID
		}
		return provider.Refund(callCtx, providers.RefundRequest{
			PaymentID:     p.ID.String(),
			TransactionID: transactionID,
			Amount:        p.Amount,
			Currency:      p.Currency,
			Reason:        reason,
		})
	})
	s.breakerResult(p.Provider, err, !errors.Is(err, domainErrors.ErrProviderRejected))
	if err != nil {
		return fmt.Errorf("provider refund: %w", err)
	}

	if err := p.MarkRefunded(reason); err != nil {
		return err
	}
	return s.repo.Update(ctx, p, payment.StatusCompleted)
}
