package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	payapp "github.com/LuongTanDat03/reuse-hub-sub000/internal/application/payment"
	domainErrors "github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/errors"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/payment"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chargeFunc func(ctx context.Context, req payapp.ChargeRequest) (*payment.Payment, error)

func (f chargeFunc) Charge(ctx context.Context, req payapp.ChargeRequest) (*payment.Payment, error) {
	return f(ctx, req)
}

func newTestPayment(t *testing.T, req payapp.ChargeRequest) *payment.Payment {
	t.Helper()
	txID := req.TransactionID
	p, err := payment.NewPayment(req.UserID, &txID, nil, req.Amount, "VND", "vnpay")
	require.NoError(t, err)
	return p
}

func TestPaymentController_CreatePayment(t *testing.T) {
	txID := uuid.NewString()
	body := fmt.Sprintf(`{"transactionId":%q,"amount":200000}`, txID)

	tests := []struct {
		name   string
		charge chargeFunc
		status int
		state  string
	}{
		{
			name: "completed",
			charge: func(ctx context.Context, req payapp.ChargeRequest) (*payment.Payment, error) {
				p := newTestPayment(t, req)
				require.NoError(t, p.MarkCompleted("ref-1"))
				return p, nil
			},
			status: http.StatusCreated,
			state:  "COMPLETED",
		},
		{
			name: "declined",
			charge: func(ctx context.Context, req payapp.ChargeRequest) (*payment.Payment, error) {
				p := newTestPayment(t, req)
				require.NoError(t, p.MarkFailed("card declined"))
				return p, nil
			},
			status: http.StatusCreated,
			state:  "FAILED",
		},
		{
			name: "provider outage",
			charge: func(ctx context.Context, req payapp.ChargeRequest) (*payment.Payment, error) {
				return newTestPayment(t, req), fmt.Errorf("charge: %w", domainErrors.ErrProviderUnavailable)
			},
			status: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got payapp.ChargeRequest
			charge := func(ctx context.Context, req payapp.ChargeRequest) (*payment.Payment, error) {
				got = req
				return tt.charge(ctx, req)
			}
			router := NewPaymentRouter(testDeps(), NewPaymentController(chargeFunc(charge)))

			w := do(t, router, http.MethodPost, "/api/v1/payments", testutil.BuyerID, body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, testutil.BuyerID, got.UserID, "payer is the caller")
			assert.Equal(t, txID, got.TransactionID)

			if tt.state != "" {
				var resp PaymentResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
				assert.Equal(t, tt.state, resp.Status)
			}
		})
	}
}

func TestPaymentController_CreatePayment_Validation(t *testing.T) {
	called := false
	router := NewPaymentRouter(testDeps(), NewPaymentController(chargeFunc(
		func(ctx context.Context, req payapp.ChargeRequest) (*payment.Payment, error) {
			called = true
			return nil, nil
		})))

	for _, body := range []string{
		`{"transactionId":"not-a-uuid","amount":100}`,
		`{"itemId":"item-1","amount":0}`,
		`{"itemId":"item-1","amount":100,"currency":"DONG"}`,
	} {
		w := do(t, router, http.MethodPost, "/api/v1/payments", testutil.BuyerID, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.False(t, called)
}
