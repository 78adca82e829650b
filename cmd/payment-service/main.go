package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	paymentApp "github.com/LuongTanDat03/reuse-hub-sub000/internal/application/payment"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/bootstrap"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/consumer"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/controller"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/notify"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/postgres"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/providers"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/rabbitmq"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "payment-service", "reusehub_payment")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()
	cfg := app.Config

	providerFactory := providers.NewFactory(providers.BreakerSettings{
		MinRequests: cfg.Payment.CircuitBreakerThreshold,
		OpenTimeout: cfg.Payment.CircuitBreakerTimeout,
	}, app.Metrics)
	notifier := notify.NewNotifier(app.Publisher, cfg.Messaging.NotificationExchange, cfg.Messaging.NotificationKey, app.Logger)

	service := paymentApp.NewService(postgres.NewPaymentRepository(app.Pool), providerFactory, app.Publisher, notifier, paymentApp.Config{
		DefaultProvider:   cfg.Payment.DefaultProvider,
		Currency:          cfg.Payment.Currency,
		ProcessingTimeout: cfg.Payment.ProcessingTimeout,
		Messaging:         cfg.Messaging,
	}, app.Metrics, app.Logger)

	registry := rabbitmq.NewRegistry()
	consumer.RegisterPaymentService(registry, cfg.Messaging, service)
	messages := rabbitmq.NewConsumer(app.Broker, registry, cfg.RabbitMQ, cfg.InstanceID, app.Metrics, app.Logger)

	router := controller.NewPaymentRouter(app.RouterDeps(), controller.NewPaymentController(service))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return messages.Run(gCtx) })
	g.Go(func() error { return app.Serve(gCtx, router) })
	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		app.Logger.Error().Err(err).Msg("Payment service error")
	}
	app.Logger.Info().Msg("Payment service exited")
}
