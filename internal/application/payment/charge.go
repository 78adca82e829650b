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
)

// ChargeRequest pays for a purchase (TransactionID) or an item boost (ItemID only).
type ChargeRequest struct {
	UserID        string
	TransactionID string
	ItemID        string
	Amount        int64
	Currency      string
	Provider      string
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Charge collects money through the provider and announces the outcome.
//
// A declined charge is a normal outcome: the payment is stored FAILED,
// payment.failed is published and no error is returned. A provider outage
// stores the payment FAILED without announcing it, so the purchase can be
// paid again before it expires, and returns ErrProviderUnavailable.
func (s *Service) Charge(ctx context.Context, req ChargeRequest) (*payment.Payment, error) {
	start := time.Now()
	if req.Currency == "" {
		req.Currency = s.cfg.Currency
	}
	if req.Provider == "" {
		req.Provider = s.cfg.DefaultProvider
	}

	provider, breaker, err := s.providers.Get(req.Provider)
	if err != nil {
		return nil, err
	}

	p, err := payment.NewPayment(req.UserID, optional(req.TransactionID), optional(req.ItemID), req.Amount, req.Currency, req.Provider)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	log := s.logger.With().
		Str("payment_id", p.ID.String()).
		Str("transaction_id", req.TransactionID).
		Str("provider", req.Provider).
		Logger()

	reference := req.TransactionID
	if reference == "" {
		reference = req.ItemID
	}
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProcessingTimeout)
	res, callErr := breaker.Execute(func() (*providers.Result, error) {
		return provider.Charge(callCtx, providers.ChargeRequest{
			PaymentID: p.ID.String(),
			UserID:    p.UserID,
			Amount:    p.Amount,
			Currency:  p.Currency,
			Reference: reference,
		})
	})
	cancel()
	declined := errors.Is(callErr, domainErrors.ErrProviderRejected)
	s.breakerResult(req.Provider, callErr, !declined)

	switch {
	case callErr == nil:
		if err := s.complete(ctx, p, res.ProviderReference); err != nil {
			s.observe("charge", "error", start)
			return nil, err
		}
		s.observe("charge", "completed", start)
		log.Info().Int64("amount", p.Amount).Msg("Payment completed")
		return p, nil

	case declined:
		reason := "Payment declined"
		if res != nil && res.ErrorMessage != "" {
			reason = res.ErrorMessage
		}
		if err := s.fail(ctx, p, reason); err != nil {
			return nil, err
		}
		s.publish(ctx, s.cfg.Messaging.PaymentFailedKey, p, reason)
		s.notifier.Notify(ctx, p.UserID, "Payment declined", reason, event.NotificationPayment, p.ID.String())
		s.observe("charge", "declined", start)
		log.Info().Str("reason", reason).Msg("Payment declined")
		return p, nil

	default:
		if err := s.fail(ctx, p, "Provider unavailable"); err != nil {
			return nil, err
		}
		s.observe("charge", "unavailable", start)
		log.Error().Err(callErr).Msg("Provider call failed")
		return p, fmt.Errorf("%w: %v", domainErrors.ErrProviderUnavailable, callErr)
	}
}

// complete stores and announces a successful charge. When the announcement
// cannot be made the money is returned, since nobody would ever learn of it.
func (s *Service) complete(ctx context.Context, p *payment.Payment, reference string) error {
	if err := p.MarkCompleted(reference); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, p, payment.StatusPending); err != nil {
		return err
	}

	ev := s.paymentEvent(p, "")
	err := s.publisher.Publish(ctx, s.cfg.Messaging.SagaExchange, s.cfg.Messaging.PaymentCompletedKey, ev)
	if err == nil {
		return nil
	}

	s.logger.Error().Err(err).Str("payment_id", p.ID.String()).Msg("Failed to announce payment, refunding")
	if refundErr := s.refund(ctx, p, "payment could not be confirmed"); refundErr != nil {
		s.logger.Error().Err(refundErr).Str("payment_id", p.ID.String()).Msg("Compensating refund failed")
		return errors.Join(err, refundErr)
	}
	return err
}

func (s *Service) fail(ctx context.Context, p *payment.Payment, reason string) error {
	if err := p.MarkFailed(reason); err != nil {
		return err
	}
	return s.repo.Update(ctx, p, payment.StatusPending)
}

func (s *Service) paymentEvent(p *payment.Payment, message string) event.PaymentEvent {
	info := event.PaymentInfo{
		PaymentID: p.ID.String(),
		UserID:    p.UserID,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Message:   message,
	}
	if p.TransactionID != nil {
		info.LinkedTransactionID = *p.TransactionID
	}
	if p.ItemID != nil {
		info.LinkedItemID = *p.ItemID
	}
	return event.NewPaymentEvent(info)
}

func (s *Service) publish(ctx context.Context, routingKey string, p *payment.Payment, message string) {
	if err := s.publisher.Publish(ctx, s.cfg.Messaging.SagaExchange, routingKey, s.paymentEvent(p, message)); err != nil {
		s.logger.Error().Err(err).
			Str("payment_id", p.ID.String()).
			Str("routing_key", routingKey).
			Msg("Failed to publish payment event")
	}
}
