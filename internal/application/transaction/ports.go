package transaction

import (
	"context"

	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/item"
)

// TransactionManager runs fn inside a database transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ItemClient looks items up in the item service.
type ItemClient interface {
	GetItem(ctx context.Context, itemID string) (*item.Item, error)
}

// Publisher sends an event to the broker.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, payload any) error
}

// Notifier tells a user about a change. It never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, recipientUserID, title, message, notificationType, correlationID string)
}
