package rabbitmq

import (
	"fmt"

	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Declarer is the subset of *amqp.Channel used to declare the topology.
type Declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

type Binding struct {
	Exchange   string
	RoutingKey string
}

type Queue struct {
	Name     string
	Bindings []Binding
}

// Topology is the full exchange/queue/binding layout shared by every service.
type Topology struct {
	Exchanges          []string
	DeadLetterExchange string
	Queues             []Queue
	QueueType          string
	DeliveryLimit      int
}

// DeadLetterQueue is the name of the dead-letter queue paired with queue.
func DeadLetterQueue(queue string) string {
	return queue + ".dlq"
}

// NewTopology builds the layout from configuration.
func NewTopology(m config.MessagingConfig, r config.RabbitMQConfig) Topology {
	saga := func(keys ...string) []Binding {
		out := make([]Binding, len(keys))
		for i, k := range keys {
			out[i] = Binding{Exchange: m.SagaExchange, RoutingKey: k}
		}
		return out
	}

	return Topology{
		Exchanges:          []string{m.SagaExchange, m.NotificationExchange},
		DeadLetterExchange: m.DeadLetterExchange,
		QueueType:          r.QueueType,
		DeliveryLimit:      r.DeliveryLimit,
		Queues: []Queue{
			{Name: m.ItemProcessQueue, Bindings: saga(m.TransactionCreatedKey, m.TransactionCancelledKey, m.TransactionCompletedKey)},
			{Name: m.TransactionReservedQ, Bindings: saga(m.ItemReservedKey)},
			{Name: m.TransactionFailedQ, Bindings: saga(m.ItemReservationFailedKey)},
			{Name: m.TransactionPaymentQ, Bindings: saga(m.PaymentCompletedKey, m.PaymentFailedKey)},
			{Name: m.ItemPaymentBoostQueue, Bindings: saga(m.PaymentCompletedKey)},
			{Name: m.PaymentRefundQueue, Bindings: saga(m.RefundRequestedKey)},
			{Name: m.NotificationQueue, Bindings: []Binding{{Exchange: m.NotificationExchange, RoutingKey: "notification.#"}}},
			{Name: m.TransactionUpdateQueue, Bindings: []Binding{{Exchange: m.NotificationExchange, RoutingKey: m.TransactionUpdatedKey}}},
		},
	}
}

// QueueArgs returns the declare arguments of a primary queue.
func (t Topology) QueueArgs(queue string) amqp.Table {
	args := amqp.Table{
		"x-dead-letter-exchange":    t.DeadLetterExchange,
		"x-dead-letter-routing-key": DeadLetterQueue(queue),
	}
	if t.QueueType == "quorum" {
		args["x-queue-type"] = "quorum"
		if t.DeliveryLimit > 0 {
			args["x-delivery-limit"] = int32(t.DeliveryLimit)
		}
	}
	return args
}

// Declare creates every exchange, queue, dead-letter queue and binding.
// Declarations are idempotent so every service may run it on startup.
func (t Topology) Declare(ch Declarer) error {
	exchanges := append([]string{t.DeadLetterExchange}, t.Exchanges...)
	for _, name := range exchanges {
		if err := ch.ExchangeDeclare(name, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", name, err)
		}
	}

	for _, q := range t.Queues {
		dlq := DeadLetterQueue(q.Name)
		if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", dlq, err)
		}
		if err := ch.QueueBind(dlq, dlq, t.DeadLetterExchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", dlq, err)
		}

		if _, err := ch.QueueDeclare(q.Name, true, false, false, false, t.QueueArgs(q.Name)); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.Name, err)
		}
		for _, b := range q.Bindings {
			if err := ch.QueueBind(q.Name, b.RoutingKey, b.Exchange, false, nil); err != nil {
				return fmt.Errorf("bind queue %s to %s/%s: %w", q.Name, b.Exchange, b.RoutingKey, err)
			}
		}
	}
	return nil
}
