package providers

import (
	"errors"
	"fmt"
	"time"

	domainErrors "github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/errors"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/observability"
	"github.com/sony/gobreaker/v2"
)

// BreakerSettings tunes the per-provider circuit breaker.
type BreakerSettings struct {
	MinRequests  uint32
	FailureRatio float64
	OpenTimeout  time.Duration
}

// Factory holds the registered providers, each behind its own circuit breaker.
type Factory struct {
	providers       map[string]Provider
	circuitBreakers map[string]*gobreaker.CircuitBreaker[*Result]
	settings        BreakerSettings
	metrics         *observability.Metrics
}

func NewFactory(settings BreakerSettings, metrics *observability.Metrics, providersList ...Provider) *Factory {
	if settings.MinRequests == 0 {
		settings.MinRequests = 10
	}
	if settings.FailureRatio <= 0 {
		settings.FailureRatio = 0.6
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = 30 * time.Second
	}

	f := &Factory{
		providers:       make(map[string]Provider),
		circuitBreakers: make(map[string]*gobreaker.CircuitBreaker[*Result]),
		settings:        settings,
		metrics:         metrics,
	}

	if len(providersList) == 0 {
		f.Register(NewMockProvider("vnpay",
			WithLatency(150*time.Millisecond),
			WithFailureRate(0.05),
		))
		f.Register(NewMockProvider("momo",
			WithLatency(250*time.Millisecond),
			WithFailureRate(0.08),
		))
	} else {
		for _, p := range providersList {
			f.Register(p)
		}
	}

	return f
}

func (f *Factory) Register(p Provider) {
	f.providers[p.Name()] = p
	f.circuitBreakers[p.Name()] = gobreaker.NewCircuitBreaker[*Result](gobreaker.Settings{
		Name:        p.Name(),
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     f.settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= f.settings.MinRequests && failureRatio >= f.settings.FailureRatio
		},
		// A declined card is a business answer; only outages count against the provider.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domainErrors.ErrProviderRejected)
		},
		OnStateChange: func(name string, _, to gobreaker.State) {
			if f.metrics != nil {
				f.metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
}

func (f *Factory) Get(name string) (Provider, *gobreaker.CircuitBreaker[*Result], error) {
	p, ok := f.providers[name]
	if !ok {
		return nil, nil, fmt.Errorf("unknown provider %q: %w", name, domainErrors.ErrProviderNotFound)
	}
	return p, f.circuitBreakers[name], nil
}

// Names lists the registered providers.
func (f *Factory) Names() []string {
	out := make([]string, 0, len(f.providers))
	for name := range f.providers {
		out = append(out, name)
	}
	return out
}
