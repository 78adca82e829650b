package controller

import (
	"net/http"
	"time"

	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/config"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/observability"
	customMW "github.com/LuongTanDat03/reuse-hub-sub000/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps is what every service router shares.
type RouterDeps struct {
	Service           string
	Health            *HealthController
	Metrics           *observability.Metrics
	MetricsHandler    http.Handler
	Idempotency       customMW.IdempotencyStore
	CORSConfig        config.CORSConfig
	JWTSecret         string
	RequestsPerMinute int
}

func newRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(customMW.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	if deps.Metrics != nil {
		r.Use(customMW.Metrics(deps.Metrics, deps.Service))
	}

	health := deps.Health
	if health == nil {
		health = NewHealthController()
	}
	r.Get("/health", health.Health)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	metricsHandler := deps.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	return r
}

// api mounts authenticated, rate limited routes under /api/v1. The
// returned middleware replays mutating requests by Idempotency-Key.
func api(r chi.Router, deps RouterDeps, routes func(r chi.Router, idempotent func(http.Handler) http.Handler)) {
	idempotent := func(next http.Handler) http.Handler { return next }
	if deps.Idempotency != nil {
		idempotent = customMW.Idempotency(deps.Idempotency)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(customMW.RequireAuth(deps.JWTSecret))
		if deps.RequestsPerMinute > 0 {
			r.Use(customMW.RateLimit(deps.RequestsPerMinute))
		}
		routes(r, idempotent)
	})
}

func NewTransactionRouter(deps RouterDeps, h *TransactionController) *chi.Mux {
	r := newRouter(deps)
	api(r, deps, func(r chi.Router, idempotent func(http.Handler) http.Handler) {
		r.With(idempotent).Post("/transactions", h.Create)
		r.Get("/transactions/{id}", h.Get)
		r.Post("/transactions/{id}/ship", h.Ship)
		r.Post("/transactions/{id}/confirm", h.Confirm)
		r.Post("/transactions/{id}/cancel", h.Cancel)
	})
	return r
}

func NewItemRouter(deps RouterDeps, h *ItemController) *chi.Mux {
	r := newRouter(deps)
	api(r, deps, func(r chi.Router, idempotent func(http.Handler) http.Handler) {
		r.With(idempotent).Post("/items", h.Create)
		r.Get("/items/{id}", h.Get)
	})

	// Collaborator lookup for the transaction service; not exposed through the gateway.
	r.Get("/internal/items/{id}", h.Get)
	return r
}

func NewPaymentRouter(deps RouterDeps, h *PaymentController) *chi.Mux {
	r := newRouter(deps)
	api(r, deps, func(r chi.Router, idempotent func(http.Handler) http.Handler) {
		r.With(idempotent).Post("/payments", h.CreatePayment)
	})
	return r
}
