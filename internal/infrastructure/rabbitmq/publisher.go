package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	domainErrors "github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/errors"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/observability"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
)

type channelSource interface {
	Channel(ctx context.Context) (*amqp.Channel, error)
}

// Publisher sends JSON events as persistent messages and waits for the
// broker confirm. It never waits on consumers.
type Publisher struct {
	conn    channelSource
	timeout time.Duration
	metrics *observability.Metrics
	logger  zerolog.Logger

	mu sync.Mutex
	ch *amqp.Channel
}

func NewPublisher(conn channelSource, timeout time.Duration, metrics *observability.Metrics, logger zerolog.Logger) *Publisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Publisher{
		conn:    conn,
		timeout: timeout,
		metrics: metrics,
		logger:  observability.Component(logger, "publisher"),
	}
}

// Publish marshals payload and publishes it to exchange with routingKey.
func (p *Publisher) Publish(ctx context.Context, exchange, routingKey string, payload any) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg, err := newPublishing(ctx, payload)
	if err != nil {
		p.record(exchange, routingKey, "encode_error")
		return fmt.Errorf("%w: %v", domainErrors.ErrPublishFailed, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel(ctx)
	if err != nil {
		p.record(exchange, routingKey, "error")
		return fmt.Errorf("%w: %v", domainErrors.ErrPublishFailed, err)
	}

	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx, exchange, routingKey, false, false, msg)
	if err != nil {
		p.reset()
		p.record(exchange, routingKey, "error")
		return fmt.Errorf("%w: %v", domainErrors.ErrPublishFailed, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		p.record(exchange, routingKey, "timeout")
		return fmt.Errorf("%w: waiting for confirm: %v", domainErrors.ErrPublishFailed, err)
	}
	if !acked {
		p.record(exchange, routingKey, "nacked")
		return fmt.Errorf("%w: broker nacked message", domainErrors.ErrPublishFailed)
	}

	p.record(exchange, routingKey, "ok")
	p.logger.Debug().
		Str("exchange", exchange).
		Str("routing_key", routingKey).
		Str("message_id", msg.MessageId).
		Msg("Message published")
	return nil
}

// channel must be called with mu held.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	ch, err := p.conn.Channel(ctx)
	if err != nil {
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}
	p.ch = ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		p.ch.Close()
		p.ch = nil
	}
}

func (p *Publisher) record(exchange, routingKey, status string) {
	if p.metrics != nil {
		p.metrics.MessagesPublished.WithLabelValues(exchange, routingKey, status).Inc()
	}
}

// Close releases the publishing channel.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}

// Identified payloads become messages with their own id, so consumers can
// correlate redeliveries.
type Identified interface {
	MessageID() string
}

func newPublishing(ctx context.Context, payload any) (amqp.Publishing, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode payload: %w", err)
	}

	var messageID string
	if ev, ok := payload.(Identified); ok {
		messageID = ev.MessageID()
	}

	headers := amqp.Table{}
	otel.GetTextMapPropagator().Inject(ctx, tableCarrier(headers))

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
		Body:         body,
	}, nil
}
