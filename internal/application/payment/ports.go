package payment

import (
	"context"
)

// Publisher sends an event to the broker.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, payload any) error
}

// Notifier tells a user about a change. It never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, recipientUserID, title, message, notificationType, correlationID string)
}
