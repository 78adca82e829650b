package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/config"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/observability"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type outcome string

const (
	outcomeAck        outcome = "ack"
	outcomeRequeue    outcome = "requeue"
	outcomeDeadLetter outcome = "dead_letter"
)

// Consumer runs the handlers of a Registry with manual acknowledgements.
type Consumer struct {
	conn           channelSource
	registry       *Registry
	prefetch       int
	workers        int
	reconnectDelay time.Duration
	instanceID     string

	metrics *observability.Metrics
	logger  zerolog.Logger
	tracer  trace.Tracer
}

func NewConsumer(
	conn channelSource,
	registry *Registry,
	cfg config.RabbitMQConfig,
	instanceID string,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 10
	}
	workers := cfg.WorkersPerQueue
	if workers <= 0 {
		workers = 1
	}
	delay := cfg.ConnectRetryDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}
	return &Consumer{
		conn:           conn,
		registry:       registry,
		prefetch:       prefetch,
		workers:        workers,
		reconnectDelay: delay,
		instanceID:     instanceID,
		metrics:        metrics,
		logger:         observability.Component(logger, "consumer"),
		tracer:         otel.Tracer("rabbitmq-consumer"),
	}
}

// Run consumes every registered queue until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, queue := range c.registry.Queues() {
		h, _ := c.registry.Handler(queue)
		g.Go(func() error {
			return c.runQueue(ctx, queue, h)
		})
	}
	return g.Wait()
}

func (c *Consumer) runQueue(ctx context.Context, queue string, h Handler) error {
	for {
		err := c.consume(ctx, queue, h)
		if ctx.Err() != nil {
			return nil
		}
		c.logger.Error().Err(err).Str("queue", queue).Msg("Consumer stopped, reconnecting")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.reconnectDelay):
		}
	}
}

func (c *Consumer) consume(ctx context.Context, queue string, h Handler) error {
	ch, err := c.conn.Channel(ctx)
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	tag := fmt.Sprintf("%s-%s", c.instanceID, queue)
	deliveries, err := ch.Consume(queue, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}
	closed := ch.NotifyClose(make(chan *amqp.Error, 1))

	c.logger.Info().Str("queue", queue).Int("workers", c.workers).Msg("Consuming")

	// In-flight messages finish even when ctx is cancelled.
	workCtx := context.WithoutCancel(ctx)
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range deliveries {
				c.process(workCtx, queue, h, d)
			}
		}()
	}

	select {
	case <-ctx.Done():
		if err := ch.Cancel(tag, false); err != nil {
			c.logger.Warn().Err(err).Str("queue", queue).Msg("Failed to cancel consumer")
		}
		wg.Wait()
		return nil
	case amqpErr := <-closed:
		wg.Wait()
		if amqpErr == nil {
			return fmt.Errorf("channel for %s closed", queue)
		}
		return fmt.Errorf("channel for %s closed: %w", queue, amqpErr)
	}
}

func (c *Consumer) process(ctx context.Context, queue string, h Handler, d amqp.Delivery) outcome {
	start := time.Now()

	ctx = otel.GetTextMapPropagator().Extract(ctx, tableCarrier(d.Headers))
	ctx, span := c.tracer.Start(ctx, "consume "+queue,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "rabbitmq"),
			attribute.String("messaging.destination.name", queue),
			attribute.String("messaging.rabbitmq.destination.routing_key", d.RoutingKey),
			attribute.String("messaging.message.id", d.MessageId),
		),
	)
	defer span.End()

	log := c.logger.With().
		Str("queue", queue).
		Str("routing_key", d.RoutingKey).
		Str("message_id", d.MessageId).
		Bool("redelivered", d.Redelivered).
		Logger()

	err := invoke(ctx, h, Message{
		Queue:       queue,
		RoutingKey:  d.RoutingKey,
		MessageID:   d.MessageId,
		Body:        d.Body,
		Redelivered: d.Redelivered,
		Headers:     d.Headers,
	})

	var (
		result outcome
		ackErr error
	)
	switch {
	case err == nil:
		result = outcomeAck
		ackErr = d.Ack(false)
	case IsPermanent(err):
		result = outcomeDeadLetter
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error().Err(err).Msg("Message rejected, dead-lettering")
		ackErr = d.Nack(false, false)
	default:
		result = outcomeRequeue
		span.RecordError(err)
		log.Warn().Err(err).Msg("Message failed, requeueing")
		ackErr = d.Nack(false, true)
	}
	if ackErr != nil {
		log.Error().Err(ackErr).Str("outcome", string(result)).Msg("Failed to settle delivery")
	}

	if c.metrics != nil {
		c.metrics.MessagesConsumed.WithLabelValues(queue, string(result)).Inc()
		c.metrics.MessageDuration.WithLabelValues(queue).Observe(time.Since(start).Seconds())
	}
	return result
}

// invoke runs h, turning a panic into a transient error.
func invoke(ctx context.Context, h Handler, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, msg)
}
