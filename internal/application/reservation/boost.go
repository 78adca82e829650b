package reservation

import (
	"context"
	"time"

	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/event"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/item"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/observability"
	"github.com/rs/zerolog"
)

// BoostHandler extends an item's promotion window when a boost payment
// completes. Purchase payments carry a transaction id and are skipped.
type BoostHandler struct {
	items    item.Repository
	duration time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

func NewBoostHandler(items item.Repository, duration time.Duration, logger zerolog.Logger) *BoostHandler {
	return &BoostHandler{
		items:    items,
		duration: duration,
		logger:   observability.Component(logger, "boost_handler"),
		now:      time.Now,
	}
}

func (h *BoostHandler) Handle(ctx context.Context, ev event.PaymentEvent) error {
	if ev.LinkedTransactionID != "" || ev.LinkedItemID == "" {
		return nil
	}

	it, err := h.items.GetByID(ctx, ev.LinkedItemID)
	if err != nil {
		return err
	}
	until := it.Boost(h.now(), h.duration)
	if err := h.items.SetBoostedUntil(ctx, it.ID, until); err != nil {
		return err
	}

	h.logger.Info().
		Str("item_id", it.ID).
		Str("payment_id", ev.PaymentID).
		Time("boosted_until", until).
		Msg("Item boosted")
	return nil
}
