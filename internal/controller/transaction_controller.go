package controller

import (
	"context"
	"net/http"

	txapp "github.com/LuongTanDat03/reuse-hub-sub000/internal/application/transaction"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/transaction"
	"github.com/google/uuid"
)

// TransactionService is the part of the saga driven by participants.
type TransactionService interface {
	Create(ctx context.Context, req txapp.CreateRequest, buyerID string) (*transaction.Transaction, error)
	Get(ctx context.Context, id uuid.UUID, actorID string) (*transaction.Transaction, error)
	MarkShipped(ctx context.Context, id uuid.UUID, actorID, trackingCode string) (*transaction.Transaction, error)
	ConfirmReceipt(ctx context.Context, id uuid.UUID, actorID string) (*transaction.Transaction, error)
	Cancel(ctx context.Context, id uuid.UUID, actorID, reason string) (*transaction.Transaction, error)
}

// TransactionController handles purchase HTTP requests.
type TransactionController struct {
	service TransactionService
}

func NewTransactionController(service TransactionService) *TransactionController {
	return &TransactionController{service: service}
}

// Create handles POST /api/v1/transactions
func (h *TransactionController) Create(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := actor(w, r)
	if !ok {
		return
	}
	var req CreateTransactionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	t, err := h.service.Create(r.Context(), txapp.CreateRequest{
		ItemID:         req.ItemID,
		Quantity:       req.Quantity,
		DeliveryMethod: transaction.DeliveryMethod(req.DeliveryMethod),
	}, buyerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, FromTransaction(t))
}

// Get handles GET /api/v1/transactions/{id}
func (h *TransactionController) Get(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(ctx context.Context, id uuid.UUID, actorID string) (*transaction.Transaction, error) {
		return h.service.Get(ctx, id, actorID)
	})
}

// Ship handles POST /api/v1/transactions/{id}/ship
func (h *TransactionController) Ship(w http.ResponseWriter, r *http.Request) {
	var req ShipTransactionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.act(w, r, func(ctx context.Context, id uuid.UUID, actorID string) (*transaction.Transaction, error) {
		return h.service.MarkShipped(ctx, id, actorID, req.TrackingCode)
	})
}

// Confirm handles POST /api/v1/transactions/{id}/confirm
func (h *TransactionController) Confirm(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(ctx context.Context, id uuid.UUID, actorID string) (*transaction.Transaction, error) {
		return h.service.ConfirmReceipt(ctx, id, actorID)
	})
}

// Cancel handles POST /api/v1/transactions/{id}/cancel. The body is optional.
func (h *TransactionController) Cancel(w http.ResponseWriter, r *http.Request) {
	var req CancelTransactionRequest
	if r.ContentLength != 0 {
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	h.act(w, r, func(ctx context.Context, id uuid.UUID, actorID string) (*transaction.Transaction, error) {
		return h.service.Cancel(ctx, id, actorID, req.Reason)
	})
}

func (h *TransactionController) act(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id uuid.UUID, actorID string) (*transaction.Transaction, error)) {
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := fn(r.Context(), id, actorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromTransaction(t))
}
