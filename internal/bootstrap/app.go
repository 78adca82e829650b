// Package bootstrap wires the process-wide dependencies shared by the
// transaction, item and payment service binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/LuongTanDat03/reuse-hub-sub000/internal/controller"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/config"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/observability"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/postgres"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/rabbitmq"
	infraRedis "github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/redis"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type App struct {
	Name      string
	Config    *config.Config
	Logger    zerolog.Logger
	Pool      *pgxpool.Pool
	Redis     *redis.Client
	Broker    *rabbitmq.Connection
	Publisher *rabbitmq.Publisher
	Metrics   *observability.Metrics
}

// New loads configuration and connects to Postgres, Redis and RabbitMQ.
// The saga topology is declared before New returns, so consumers and
// publishers can start immediately.
func New(ctx context.Context, serviceName string, metricsNamespace string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.InitLogger(cfg.Observability.LogLevel, os.Stdout).
		With().Str("service", serviceName).Logger()
	logger.Info().Str("instance_id", cfg.InstanceID).Msg("Starting")

	if cfg.Observability.EnableTracing {
		tp, err := observability.InitTracer(serviceName, cfg.Observability.JaegerEndpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		} else {
			go func() {
				<-ctx.Done()
				observability.Shutdown(context.Background(), tp)
			}()
			logger.Info().Msg("Tracing enabled")
		}
	}

	metrics := observability.NewMetrics(metricsNamespace, nil)
	logger.Info().Msg("Metrics initialized")

	pool, err := postgres.NewPool(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info().Str("database", cfg.Database.Database).Msg("Connected to PostgreSQL")

	redisClient, err := infraRedis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info().Msg("Connected to Redis")

	broker, err := rabbitmq.Connect(ctx, cfg.RabbitMQ, logger)
	if err != nil {
		redisClient.Close()
		pool.Close()
		return nil, err
	}
	if err := broker.DeclareTopology(ctx, rabbitmq.NewTopology(cfg.Messaging, cfg.RabbitMQ)); err != nil {
		broker.Close()
		redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("declare topology: %w", err)
	}
	logger.Info().Str("queue_type", cfg.RabbitMQ.QueueType).Msg("Connected to RabbitMQ, topology declared")

	return &App{
		Name:      serviceName,
		Config:    cfg,
		Logger:    logger,
		Pool:      pool,
		Redis:     redisClient,
		Broker:    broker,
		Publisher: rabbitmq.NewPublisher(broker, cfg.RabbitMQ.PublishTimeout, metrics, logger),
		Metrics:   metrics,
	}, nil
}

// RouterDeps returns the HTTP dependencies every service router shares.
func (a *App) RouterDeps() controller.RouterDeps {
	return controller.RouterDeps{
		Health: controller.NewHealthController(
			controller.DatabaseCheck(a.Pool),
			controller.RedisCheck(a.Redis),
			controller.BrokerCheck(a.Broker),
		),
		Metrics:           a.Metrics,
		Idempotency:       infraRedis.NewIdempotencyStore(a.Redis, a.Name, a.Config.Redis.IdempotencyTTL),
		CORSConfig:        a.Config.Server.CORS,
		JWTSecret:         a.Config.Auth.JWTSecret,
		RequestsPerMinute: a.Config.Server.RequestsPerMinute,
		Service:           a.Name,
	}
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down
// within the configured shutdown timeout.
func (a *App) Serve(ctx context.Context, handler http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      handler,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", srv.Addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.Logger.Info().Msg("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error().Err(err).Msg("Server forced to shutdown")
		return err
	}
	return nil
}

func (a *App) Close() {
	a.Publisher.Close()
	if err := a.Broker.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close RabbitMQ connection")
	}
	a.Redis.Close()
	a.Pool.Close()
}
