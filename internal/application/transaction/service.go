// Package transaction drives the purchase state machine of the transaction
// service: it reacts to item and payment events, to participant actions and
// to expiry, and announces every step on the broker.
package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainErrors "github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/errors"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/event"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/transaction"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/config"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// errNoChange tells apply that the loaded transaction needs no update.
var errNoChange = errors.New("no change")

type Config struct {
	ReservationTimeout time.Duration
	PaymentTimeout     time.Duration
	StatusRetries      int
	Currency           string
	Messaging          config.MessagingConfig
}

type Service struct {
	repo      transaction.Repository
	txManager TransactionManager
	items     ItemClient
	publisher Publisher
	notifier  Notifier
	cfg       Config
	metrics   *observability.Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(
	repo transaction.Repository,
	txManager TransactionManager,
	items ItemClient,
	publisher Publisher,
	notifier Notifier,
	cfg Config,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Service {
	if cfg.StatusRetries <= 0 {
		cfg.StatusRetries = 3
	}
	return &Service{
		repo:      repo,
		txManager: txManager,
		items:     items,
		publisher: publisher,
		notifier:  notifier,
		cfg:       cfg,
		metrics:   metrics,
		logger:    observability.Component(logger, "transaction_service"),
		now:       time.Now,
	}
}

// apply loads the transaction, lets fn change it and persists the result
// guarded by the status fn saw. When another writer got there first the
// transaction is reloaded and fn re-evaluated, at most StatusRetries times.
// fn returns errNoChange to leave the transaction untouched; apply then
// returns the loaded transaction with errNoChange.
func (s *Service) apply(ctx context.Context, op string, id uuid.UUID, fn func(t *transaction.Transaction) error) (*transaction.Transaction, transaction.Status, error) {
	var lastErr error
	for attempt := 0; attempt < s.cfg.StatusRetries; attempt++ {
		t, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, "", err
		}
		previous := t.Status

		if err := fn(t); err != nil {
			return t, previous, err
		}

		err = s.repo.Update(ctx, t, previous)
		if err == nil {
			s.recordTransition(op, previous, t.Status)
			return t, previous, nil
		}
		if !errors.Is(err, domainErrors.ErrStatusConflict) {
			return nil, "", fmt.Errorf("update transaction: %w", err)
		}
		lastErr = err
		if s.metrics != nil {
			s.metrics.StatusConflicts.WithLabelValues(op).Inc()
		}
		s.logger.Debug().Str("transaction_id", id.String()).Str("operation", op).Int("attempt", attempt+1).
			Msg("Status changed concurrently, reloading")
	}
	return nil, "", lastErr
}

func (s *Service) recordTransition(op string, from, to transaction.Status) {
	if s.metrics == nil {
		return
	}
	s.metrics.SagaOperations.WithLabelValues(op, "applied").Inc()
	if from != to {
		s.metrics.SagaTransitions.WithLabelValues(string(from), string(to)).Inc()
	}
}

func (s *Service) recordNoop(op string) {
	if s.metrics != nil {
		s.metrics.SagaOperations.WithLabelValues(op, "noop").Inc()
	}
}

func snapshot(t *transaction.Transaction) event.TransactionSnapshot {
	return event.TransactionSnapshot{
		TransactionID: t.ID.String(),
		BuyerID:       t.BuyerID,
		SellerID:      t.SellerID,
		ItemID:        t.ItemID,
		ItemTitle:     t.ItemTitle,
		Quantity:      t.Quantity,
		TotalAmount:   t.TotalAmount,
		Status:        string(t.Status),
	}
}

// publish is best effort: the state change is already committed.
func (s *Service) publish(ctx context.Context, exchange, routingKey string, t *transaction.Transaction, payload any) {
	if err := s.publisher.Publish(ctx, exchange, routingKey, payload); err != nil {
		s.logger.Error().Err(err).
			Str("transaction_id", t.ID.String()).
			Str("routing_key", routingKey).
			Msg("Failed to publish event")
	}
}

func (s *Service) publishLifecycle(ctx context.Context, t *transaction.Transaction, eventType event.TransactionEventType, routingKey, message string) {
	s.publish(ctx, s.cfg.Messaging.SagaExchange, routingKey, t, event.NewTransactionEvent(eventType, snapshot(t), message))
}

func (s *Service) publishUpdate(ctx context.Context, t *transaction.Transaction, previous transaction.Status) {
	s.publish(ctx, s.cfg.Messaging.NotificationExchange, s.cfg.Messaging.TransactionUpdatedKey, t,
		event.NewTransactionUpdate(snapshot(t), string(previous)))
}

func (s *Service) requestRefund(ctx context.Context, t *transaction.Transaction, paymentID string, amount int64, currency, reason string) {
	if currency == "" {
		currency = s.cfg.Currency
	}
	s.logger.Warn().
		Str("transaction_id", t.ID.String()).
		Str("payment_id", paymentID).
		Int64("amount", amount).
		Msg("Requesting refund")
	s.publish(ctx, s.cfg.Messaging.SagaExchange, s.cfg.Messaging.RefundRequestedKey, t,
		event.NewRefundRequested(paymentID, t.ID.String(), t.BuyerID, amount, currency, reason))
}

func (s *Service) notify(ctx context.Context, recipient, title, message, notificationType string, t *transaction.Transaction) {
	s.notifier.Notify(ctx, recipient, title, message, notificationType, t.ID.String())
}

// Get returns the transaction to one of its participants.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actorID string) (*transaction.Transaction, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.IsParticipant(actorID) {
		return nil, domainErrors.ErrForbidden
	}
	return t, nil
}
