// Package payment is the thin payment gateway: it charges buyers through a
// provider, announces the outcome to the saga and refunds on request.
package payment

import (
	"time"

	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/payment"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/config"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/observability"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/providers"
	"github.com/rs/zerolog"
)

type Config struct {
	DefaultProvider   string
	Currency          string
	ProcessingTimeout time.Duration
	Messaging         config.MessagingConfig
}

type Service struct {
	repo      payment.Repository
	providers *providers.Factory
	publisher Publisher
	notifier  Notifier
	cfg       Config
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

func NewService(
	repo payment.Repository,
	providerFactory *providers.Factory,
	publisher Publisher,
	notifier Notifier,
	cfg Config,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Service {
	if cfg.ProcessingTimeout <= 0 {
		cfg.ProcessingTimeout = 30 * time.Second
	}
	return &Service{
		repo:      repo,
		providers: providerFactory,
		publisher: publisher,
		notifier:  notifier,
		cfg:       cfg,
		metrics:   metrics,
		logger:    observability.Component(logger, "payment_service"),
	}
}

func (s *Service) observe(operation, status string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.PaymentsTotal.WithLabelValues(operation, status).Inc()
	s.metrics.PaymentDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (s *Service) breakerResult(name string, err error, countsAgainst bool) {
	if s.metrics == nil {
		return
	}
	result := "success"
	if err != nil && countsAgainst {
		result = "failure"
	}
	s.metrics.CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}
