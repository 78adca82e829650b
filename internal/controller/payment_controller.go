package controller

import (
	"context"
	"net/http"

	payapp "github.com/LuongTanDat03/reuse-hub-sub000/internal/application/payment"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/payment"
)

type PaymentService interface {
	Charge(ctx context.Context, req payapp.ChargeRequest) (*payment.Payment, error)
}

// PaymentController handles payment-related HTTP requests.
type PaymentController struct {
	service PaymentService
}

func NewPaymentController(service PaymentService) *PaymentController {
	return &PaymentController{service: service}
}

// CreatePayment handles POST /api/v1/payments. A declined charge is still
// 201 with status FAILED; a provider outage is 503.
func (h *PaymentController) CreatePayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	var req CreatePaymentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.service.Charge(r.Context(), payapp.ChargeRequest{
		UserID:        userID,
		TransactionID: req.TransactionID,
		ItemID:        req.ItemID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Provider:      req.Provider,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, FromPayment(p))
}
