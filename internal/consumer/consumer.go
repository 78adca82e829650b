// Package consumer adapts broker deliveries to the application services:
// it decodes message bodies and classifies handler errors into ack, requeue
// and dead-letter outcomes.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domainErrors "github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/errors"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/event"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/config"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/rabbitmq"
)

// permanentErrors never succeed on redelivery.
var permanentErrors = []error{
	domainErrors.ErrMalformedMessage,
	domainErrors.ErrTransactionNotFound,
	domainErrors.ErrItemNotFound,
	domainErrors.ErrPaymentNotFound,
	domainErrors.ErrProviderRejected,
	domainErrors.ErrProviderNotFound,
}

// classify marks errors that redelivery cannot fix as permanent.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, target := range permanentErrors {
		if errors.Is(err, target) {
			return rabbitmq.Permanent(err)
		}
	}
	return err
}

func decode[T any](msg rabbitmq.Message) (T, error) {
	var v T
	if err := json.Unmarshal(msg.Body, &v); err != nil {
		return v, rabbitmq.Permanent(fmt.Errorf("%w: %v", domainErrors.ErrMalformedMessage, err))
	}
	return v, nil
}

func handle[T any](fn func(ctx context.Context, v T) error) rabbitmq.Handler {
	return func(ctx context.Context, msg rabbitmq.Message) error {
		v, err := decode[T](msg)
		if err != nil {
			return err
		}
		return classify(fn(ctx, v))
	}
}

// ReservationReplies is the transaction service side of item replies.
type ReservationReplies interface {
	OnItemReserved(ctx context.Context, ev event.ItemReservationEvent) error
	OnItemReservationFailed(ctx context.Context, ev event.ItemReservationEvent) error
}

// PaymentResults forwards payment outcomes.
type PaymentResults interface {
	Handle(ctx context.Context, ev event.PaymentEvent, succeeded bool) error
}

// LifecycleHandler applies transaction lifecycle events to items.
type LifecycleHandler interface {
	Handle(ctx context.Context, ev event.TransactionEventMessage) error
}

// BoostHandler applies boost payments to items.
type BoostHandler interface {
	Handle(ctx context.Context, ev event.PaymentEvent) error
}

// Refunder returns collected money.
type Refunder interface {
	Refund(ctx context.Context, ev event.RefundRequestedEvent) error
}

// RegisterTransactionService binds the transaction service queues.
func RegisterTransactionService(reg *rabbitmq.Registry, m config.MessagingConfig, replies ReservationReplies, payments PaymentResults) {
	reg.Register(m.TransactionReservedQ, handle(replies.OnItemReserved)).
		Register(m.TransactionFailedQ, handle(replies.OnItemReservationFailed)).
		Register(m.TransactionPaymentQ, rabbitmq.RouteByKey(map[string]rabbitmq.Handler{
			m.PaymentCompletedKey: handle(func(ctx context.Context, ev event.PaymentEvent) error {
				return payments.Handle(ctx, ev, true)
			}),
			m.PaymentFailedKey: handle(func(ctx context.Context, ev event.PaymentEvent) error {
				return payments.Handle(ctx, ev, false)
			}),
		}))
}

// RegisterItemService binds the item service queues.
func RegisterItemService(reg *rabbitmq.Registry, m config.MessagingConfig, lifecycle LifecycleHandler, boost BoostHandler) {
	reg.Register(m.ItemProcessQueue, handle(lifecycle.Handle)).
		Register(m.ItemPaymentBoostQueue, handle(boost.Handle))
}

// RegisterPaymentService binds the payment service queues.
func RegisterPaymentService(reg *rabbitmq.Registry, m config.MessagingConfig, refunds Refunder) {
	reg.Register(m.PaymentRefundQueue, handle(refunds.Refund))
}
