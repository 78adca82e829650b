package transaction

import (
	"context"
	"errors"

	domainErrors "github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/errors"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/event"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/item"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/transaction"
)

// CreateRequest is a buyer's purchase intent.
type CreateRequest struct {
	ItemID         string
	Quantity       int
	DeliveryMethod transaction.DeliveryMethod
}

// Create opens a PENDING transaction and asks the item service to reserve the item.
// The availability check here is a pre-check only; the reservation itself is
// decided by the item service.
func (s *Service) Create(ctx context.Context, req CreateRequest, buyerID string) (*transaction.Transaction, error) {
	if req.Quantity < 1 {
		return nil, domainErrors.NewValidationError("quantity", "must be at least 1")
	}
	if req.DeliveryMethod != transaction.DeliveryPickup && req.DeliveryMethod != transaction.DeliveryShipping {
		return nil, domainErrors.NewValidationError("deliveryMethod", "must be PICKUP or SHIPPING")
	}

	it, err := s.items.GetItem(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if it.SellerID == buyerID {
		return nil, domainErrors.InvalidData("buyer cannot purchase their own item", domainErrors.ErrSelfPurchase)
	}
	if it.Status != item.StatusAvailable {
		return nil, domainErrors.InvalidData("item is not available", domainErrors.ErrItemUnavailable)
	}

	t, err := transaction.NewTransaction(
		it.ID, it.Title, buyerID, it.SellerID,
		req.Quantity, it.Price, req.DeliveryMethod,
		s.cfg.ReservationTimeout,
	)
	if err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindActive(txCtx, t.ItemID, buyerID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domainErrors.InvalidData("an active transaction already exists for this item", domainErrors.ErrActiveTransactionExists)
		}
		return s.repo.Create(txCtx, t)
	})
	if err != nil {
		if s.metrics != nil && errors.Is(err, domainErrors.ErrActiveTransactionExists) {
			s.metrics.SagaOperations.WithLabelValues("create", "duplicate").Inc()
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.SagaOperations.WithLabelValues("create", "applied").Inc()
	}

	s.logger.Info().
		Str("transaction_id", t.ID.String()).
		Str("item_id", t.ItemID).
		Str("buyer_id", buyerID).
		Int64("total_amount", t.TotalAmount).
		Msg("Transaction created")

	s.publishLifecycle(ctx, t, event.TransactionCreated, s.cfg.Messaging.TransactionCreatedKey, "")
	s.publishUpdate(ctx, t, "")
	return t, nil
}
