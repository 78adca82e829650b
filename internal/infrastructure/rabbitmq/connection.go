package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/config"
	"github.com/LuongTanDat03/reuse-hub-sub000/pkg/retry"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Connection owns the broker connection and redials it when it drops.
type Connection struct {
	cfg    config.RabbitMQConfig
	logger zerolog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
}

// Connect dials the broker with bounded retries.
func Connect(ctx context.Context, cfg config.RabbitMQConfig, logger zerolog.Logger) (*Connection, error) {
	c := &Connection{cfg: cfg, logger: logger}
	if err := c.dial(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connection) retryConfig() retry.Config {
	attempts := c.cfg.ConnectRetries
	if attempts == 0 {
		attempts = 10
	}
	delay := c.cfg.ConnectRetryDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}
	return retry.Config{
		MaxAttempts:  attempts,
		InitialDelay: delay,
		MaxDelay:     30 * time.Second,
		OnRetry: func(n uint, err error) {
			c.logger.Warn().Err(err).Uint("attempt", n+1).Msg("RabbitMQ dial failed, retrying")
		},
	}
}

// dial must be called with mu held or before c is shared.
func (c *Connection) dial(ctx context.Context) error {
	conn, err := retry.DoWithResult(ctx, c.retryConfig(), func() (*amqp.Connection, error) {
		return amqp.DialConfig(c.cfg.URL, amqp.Config{
			Heartbeat: 10 * time.Second,
			Locale:    "en_US",
		})
	})
	if err != nil {
		return fmt.Errorf("connect to rabbitmq: %w", err)
	}
	c.conn = conn
	return nil
}

// Channel opens a new channel, redialing first if the connection is closed.
func (c *Connection) Channel(ctx context.Context) (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.conn.IsClosed() {
		c.logger.Warn().Msg("RabbitMQ connection closed, redialing")
		if err := c.dial(ctx); err != nil {
			return nil, err
		}
	}
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, nil
}

// DeclareTopology declares t on a short-lived channel.
func (c *Connection) DeclareTopology(ctx context.Context, t Topology) error {
	ch, err := c.Channel(ctx)
	if err != nil {
		return err
	}
	defer ch.Close()
	return t.Declare(ch)
}

// Healthy reports whether the connection is open.
func (c *Connection) Healthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.conn.IsClosed()
}

func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.conn.IsClosed() {
		return nil
	}
	return c.conn.Close()
}
