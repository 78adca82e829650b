package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/LuongTanDat03/reuse-hub-sub000/internal/application/reservation"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/bootstrap"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/consumer"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/controller"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/postgres"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/rabbitmq"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "item-service", "reusehub_item")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()
	cfg := app.Config

	itemRepo := postgres.NewItemRepository(app.Pool)

	registry := rabbitmq.NewRegistry()
	consumer.RegisterItemService(registry, cfg.Messaging,
		reservation.NewHandler(itemRepo, app.Publisher, cfg.Messaging, app.Metrics, app.Logger),
		reservation.NewBoostHandler(itemRepo, cfg.Saga.BoostDuration, app.Logger),
	)
	messages := rabbitmq.NewConsumer(app.Broker, registry, cfg.RabbitMQ, cfg.InstanceID, app.Metrics, app.Logger)

	router := controller.NewItemRouter(app.RouterDeps(), controller.NewItemController(itemRepo))

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
		app.Logger.Error().Err(err).Msg("Item service error")
	}
	app.Logger.Info().Msg("Item service exited")
}
