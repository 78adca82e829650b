// Package paymentresult forwards payment outcomes to the transaction state machine.
package paymentresult

import (
	"context"
	"fmt"

	domainErrors "github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/errors"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/event"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/observability"
	"github.com/rs/zerolog"
)

// Recorder is the transaction service operation the relay drives.
type Recorder interface {
	OnPaymentResult(ctx context.Context, ev event.PaymentEvent, succeeded bool) error
}

type Relay struct {
	recorder Recorder
	logger   zerolog.Logger
}

func NewRelay(recorder Recorder, logger zerolog.Logger) *Relay {
	return &Relay{
		recorder: recorder,
		logger:   observability.Component(logger, "payment_result_relay"),
	}
}

// Handle requires a linked transaction; payments for anything else (boosts)
// never reach this queue's handler legitimately.
func (r *Relay) Handle(ctx context.Context, ev event.PaymentEvent, succeeded bool) error {
	if ev.LinkedTransactionID == "" {
		return fmt.Errorf("%w: payment %s has no linked transaction", domainErrors.ErrMalformedMessage, ev.PaymentID)
	}
	r.logger.Debug().
		Str("transaction_id", ev.LinkedTransactionID).
		Str("payment_id", ev.PaymentID).
		Bool("succeeded", succeeded).
		Msg("Relaying payment result")
	return r.recorder.OnPaymentResult(ctx, ev, succeeded)
}
