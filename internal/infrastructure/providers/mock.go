package providers

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	domainErrors "github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/errors"
	"github.com/google/uuid"
)

// MockProvider simulates a gateway with configurable latency and failure rates.
type MockProvider struct {
	name        string
	failureRate float64 // 0.0 to 1.0
	latency     time.Duration
	timeoutRate float64 // 0.0 to 1.0
}

type MockProviderOption func(*MockProvider)

func WithFailureRate(rate float64) MockProviderOption {
	return func(p *MockProvider) { p.failureRate = rate }
}

func WithLatency(d time.Duration) MockProviderOption {
	return func(p *MockProvider) { p.latency = d }
}

func WithTimeoutRate(rate float64) MockProviderOption {
	return func(p *MockProvider) { p.timeoutRate = rate }
}

func NewMockProvider(name string, opts ...MockProviderOption) *MockProvider {
	p := &MockProvider{
		name:    name,
		latency: 100 * time.Millisecond,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *MockProvider) Name() string { return p.name }

func (p *MockProvider) wait(ctx context.Context) error {
	select {
	case <-time.After(p.latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *MockProvider) Charge(ctx context.Context, req ChargeRequest) (*Result, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	if rand.Float64() < p.timeoutRate {
		return nil, domainErrors.ErrProviderTimeout
	}
	if rand.Float64() < p.failureRate {
		return &Result{
			Status:       "failed",
			ErrorMessage: fmt.Sprintf("%s: card declined for payment %s", p.name, req.PaymentID),
		}, domainErrors.ErrProviderRejected
	}
	return &Result{
		ProviderReference: fmt.Sprintf("%s_chg_%s", p.name, uuid.NewString()[:8]),
		Status:            "success",
	}, nil
}

func (p *MockProvider) Refund(ctx context.Context, req RefundRequest) (*Result, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	if rand.Float64() < p.failureRate {
		return &Result{
			Status:       "failed",
			ErrorMessage: fmt.Sprintf("%s: refund failed for payment %s", p.name, req.PaymentID),
		}, domainErrors.ErrProviderRejected
	}
	return &Result{
		ProviderReference: fmt.Sprintf("%s_ref_%s", p.name, uuid.NewString()[:8]),
		Status:            "success",
	}, nil
}
