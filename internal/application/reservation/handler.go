// Package reservation owns the item side of the purchase: it reserves, releases
// and sells items in reaction to transaction lifecycle events and replies to
// the transaction service.
package reservation

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/errors"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/event"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/item"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/config"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/observability"
	"github.com/rs/zerolog"
)

const (
	reasonNotFound    = "Item not found"
	reasonUnavailable = "Item is not available"
)

// Publisher sends an event to the broker.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, payload any) error
}

type Handler struct {
	items     item.Repository
	publisher Publisher
	messaging config.MessagingConfig
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

func NewHandler(items item.Repository, publisher Publisher, messaging config.MessagingConfig, metrics *observability.Metrics, logger zerolog.Logger) *Handler {
	return &Handler{
		items:     items,
		publisher: publisher,
		messaging: messaging,
		metrics:   metrics,
		logger:    observability.Component(logger, "reservation_handler"),
	}
}

// Handle applies one transaction lifecycle event to its item.
func (h *Handler) Handle(ctx context.Context, ev event.TransactionEventMessage) error {
	switch ev.EventType {
	case event.TransactionCreated:
		return h.reserve(ctx, ev)
	case event.TransactionCancelled:
		return h.settle(ctx, ev, "release", h.items.Release)
	case event.TransactionCompleted:
		return h.settle(ctx, ev, "sell", h.items.MarkSold)
	default:
		return fmt.Errorf("%w: event type %q", domainErrors.ErrMalformedMessage, ev.EventType)
	}
}

func (h *Handler) reserve(ctx context.Context, ev event.TransactionEventMessage) error {
	log := h.logger.With().Str("transaction_id", ev.TransactionID).Str("item_id", ev.ItemID).Logger()

	it, err := h.items.GetByID(ctx, ev.ItemID)
	if errors.Is(err, domainErrors.ErrItemNotFound) {
		log.Warn().Msg("Reservation requested for unknown item")
		return h.reply(ctx, event.NewItemReservationFailed(ev.TransactionID, ev.ItemID, reasonNotFound))
	}
	if err != nil {
		return err
	}

	// A redelivered CREATED finds the item already held by the same transaction.
	if it.IsHeldBy(ev.TransactionID) {
		h.record("reserve", "duplicate")
		return h.reply(ctx, event.NewItemReserved(ev.TransactionID, ev.ItemID))
	}
	if it.Status != item.StatusAvailable {
		h.record("reserve", "unavailable")
		log.Info().Str("status", string(it.Status)).Msg("Item not available for reservation")
		return h.reply(ctx, event.NewItemReservationFailed(ev.TransactionID, ev.ItemID, reasonUnavailable))
	}

	ok, err := h.items.Reserve(ctx, ev.ItemID, ev.TransactionID)
	if err != nil {
		return err
	}
	if !ok {
		// Lost the race. Re-read to tell a concurrent duplicate from a rival buyer.
		it, err = h.items.GetByID(ctx, ev.ItemID)
		if err != nil {
			return err
		}
		if !it.IsHeldBy(ev.TransactionID) {
			h.record("reserve", "unavailable")
			log.Info().Msg("Item reserved concurrently by another transaction")
			return h.reply(ctx, event.NewItemReservationFailed(ev.TransactionID, ev.ItemID, reasonUnavailable))
		}
	}

	h.record("reserve", "applied")
	log.Info().Msg("Item reserved")
	return h.reply(ctx, event.NewItemReserved(ev.TransactionID, ev.ItemID))
}

func (h *Handler) settle(ctx context.Context, ev event.TransactionEventMessage, op string, fn func(ctx context.Context, id, transactionID string) (bool, error)) error {
	ok, err := fn(ctx, ev.ItemID, ev.TransactionID)
	if err != nil {
		return err
	}
	if ok {
		h.record(op, "applied")
		h.logger.Info().Str("transaction_id", ev.TransactionID).Str("item_id", ev.ItemID).Str("operation", op).
			Msg("Item reservation settled")
		return nil
	}

	// Not held by this transaction: either already settled or never reserved.
	// An item that does not exist at all is not worth redelivering.
	it, err := h.items.GetByID(ctx, ev.ItemID)
	if err != nil {
		return err
	}
	h.record(op, "noop")
	h.logger.Info().
		Str("transaction_id", ev.TransactionID).
		Str("item_id", ev.ItemID).
		Str("operation", op).
		Str("status", string(it.Status)).
		Msg("Item not held by transaction, ignoring")
	return nil
}

// reply failures are returned so the CREATED event is redelivered.
func (h *Handler) reply(ctx context.Context, ev event.ItemReservationEvent) error {
	key := h.messaging.ItemReservedKey
	if !ev.Success {
		key = h.messaging.ItemReservationFailedKey
	}
	if err := h.publisher.Publish(ctx, h.messaging.SagaExchange, key, ev); err != nil {
		return fmt.Errorf("reply %s: %w", key, err)
	}
	return nil
}

func (h *Handler) record(op, outcome string) {
	if h.metrics != nil {
		h.metrics.SagaOperations.WithLabelValues("item_"+op, outcome).Inc()
	}
}
