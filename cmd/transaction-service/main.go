package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/LuongTanDat03/reuse-hub-sub000/internal/application/paymentresult"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/application/reconcile"
	txApp "github.com/LuongTanDat03/reuse-hub-sub000/internal/application/transaction"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/bootstrap"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/consumer"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/controller"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/itemclient"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/notify"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/postgres"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/rabbitmq"
	infraRedis "github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/redis"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "transaction-service", "reusehub_transaction")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()
	cfg := app.Config

	// --- Repositories and collaborators ---
	txRepo := postgres.NewTransactionRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)
	items := itemclient.New(cfg.ItemService, app.Metrics, app.Logger)
	notifier := notify.NewNotifier(app.Publisher, cfg.Messaging.NotificationExchange, cfg.Messaging.NotificationKey, app.Logger)

	// --- Saga ---
	service := txApp.NewService(txRepo, txManager, items, app.Publisher, notifier, txApp.Config{
		ReservationTimeout: cfg.Saga.ReservationTimeout,
		PaymentTimeout:     cfg.Saga.PaymentTimeout,
		StatusRetries:      cfg.Saga.StatusRetries,
		Currency:           cfg.Payment.Currency,
		Messaging:          cfg.Messaging,
	}, app.Metrics, app.Logger)

	registry := rabbitmq.NewRegistry()
	consumer.RegisterTransactionService(registry, cfg.Messaging, service, paymentresult.NewRelay(service, app.Logger))
	messages := rabbitmq.NewConsumer(app.Broker, registry, cfg.RabbitMQ, cfg.InstanceID, app.Metrics, app.Logger)

	reconciler := reconcile.New(txRepo, service, infraRedis.NewLocker(app.Redis, cfg.InstanceID), reconcile.Config{
		Interval:  cfg.Saga.ReconcileInterval,
		BatchSize: cfg.Saga.ReconcileBatchSize,
		LockTTL:   cfg.Saga.ReconcileLockTTL,
	}, app.Metrics, app.Logger)

	router := controller.NewTransactionRouter(app.RouterDeps(), controller.NewTransactionController(service))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Item and payment replies.
	g.Go(func() error { return messages.Run(gCtx) })

	// 2. Expiry reconciler.
	g.Go(func() error { return reconciler.Run(gCtx) })

	// 3. Purchase API.
	g.Go(func() error { return app.Serve(gCtx, router) })

	// 4. Wait for shutdown signal.
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
		app.Logger.Error().Err(err).Msg("Transaction service error")
	}
	app.Logger.Info().Msg("Transaction service exited")
}
