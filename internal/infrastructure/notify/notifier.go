// Package notify sends user notifications through the notification exchange.
package notify

import (
	"context"

	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/event"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/observability"
	"github.com/rs/zerolog"
)

// Publisher is the subset of the broker publisher the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, payload any) error
}

// Notifier emits NotificationMessage events. Delivery is fire-and-forget:
// failures are logged and never returned to the saga.
type Notifier struct {
	publisher  Publisher
	exchange   string
	routingKey string
	logger     zerolog.Logger
}

func NewNotifier(publisher Publisher, exchange, routingKey string, logger zerolog.Logger) *Notifier {
	return &Notifier{
		publisher:  publisher,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     observability.Component(logger, "notifier"),
	}
}

func (n *Notifier) Notify(ctx context.Context, recipientUserID, title, message, notificationType, correlationID string) {
	if recipientUserID == "" {
		return
	}
	msg := event.NewNotification(recipientUserID, title, message, notificationType, correlationID)
	if err := n.publisher.Publish(ctx, n.exchange, n.routingKey, msg); err != nil {
		n.logger.Warn().
			Err(err).
			Str("recipient", recipientUserID).
			Str("correlation_id", correlationID).
			Msg("Failed to send notification")
	}
}
