package rabbitmq

import (
	"testing"

	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type declaredQueue struct {
	name string
	args amqp.Table
}

type bindCall struct {
	queue, key, exchange string
}

type fakeDeclarer struct {
	exchanges []string
	queues    []declaredQueue
	binds     []bindCall
}

func (f *fakeDeclarer) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.exchanges = append(f.exchanges, name+":"+kind)
	return nil
}

func (f *fakeDeclarer) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	f.queues = append(f.queues, declaredQueue{name: name, args: args})
	return amqp.Queue{Name: name}, nil
}

func (f *fakeDeclarer) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	f.binds = append(f.binds, bindCall{queue: name, key: key, exchange: exchange})
	return nil
}

func testMessaging() config.MessagingConfig {
	return config.MessagingConfig{
		SagaExchange:             "reusehub.saga",
		NotificationExchange:     "reusehub.notification",
		DeadLetterExchange:       "reusehub.dlx",
		ItemProcessQueue:         "item.process",
		ItemPaymentBoostQueue:    "item.payment.boost",
		TransactionReservedQ:     "transaction.update.reserved",
		TransactionFailedQ:       "transaction.update.failed",
		TransactionPaymentQ:      "transaction.payment",
		PaymentRefundQueue:       "payment.refund",
		NotificationQueue:        "notification.user",
		TransactionUpdateQueue:   "transaction.updates",
		TransactionCreatedKey:    "transaction.created",
		TransactionCancelledKey:  "transaction.cancelled",
		TransactionCompletedKey:  "transaction.completed",
		ItemReservedKey:          "item.reserved",
		ItemReservationFailedKey: "item.reservation-failed",
		PaymentCompletedKey:      "payment.completed",
		PaymentFailedKey:         "payment.failed",
		RefundRequestedKey:       "payment.refund-requested",
		NotificationKey:          "notification.user",
		TransactionUpdatedKey:    "transaction.updated",
	}
}

func TestTopology_DeclaresDeadLetterQueuePerQueue(t *testing.T) {
	topo := NewTopology(testMessaging(), config.RabbitMQConfig{QueueType: "classic"})
	d := &fakeDeclarer{}

	require.NoError(t, topo.Declare(d))

	assert.Equal(t, []string{"reusehub.dlx:topic", "reusehub.saga:topic", "reusehub.notification:topic"}, d.exchanges)

	declared := map[string]amqp.Table{}
	for _, q := range d.queues {
		declared[q.name] = q.args
	}
	for _, q := range topo.Queues {
		args, ok := declared[q.Name]
		require.True(t, ok, q.Name)
		assert.Equal(t, "reusehub.dlx", args["x-dead-letter-exchange"])
		assert.Equal(t, q.Name+".dlq", args["x-dead-letter-routing-key"])

		_, ok = declared[q.Name+".dlq"]
		assert.True(t, ok, "dead-letter queue for %s", q.Name)
		assert.Contains(t, d.binds, bindCall{queue: q.Name + ".dlq", key: q.Name + ".dlq", exchange: "reusehub.dlx"})
	}
}

func TestTopology_Bindings(t *testing.T) {
	topo := NewTopology(testMessaging(), config.RabbitMQConfig{QueueType: "classic"})
	d := &fakeDeclarer{}
	require.NoError(t, topo.Declare(d))

	expected := []bindCall{
		{"item.process", "transaction.created", "reusehub.saga"},
		{"item.process", "transaction.cancelled", "reusehub.saga"},
		{"item.process", "transaction.completed", "reusehub.saga"},
		{"transaction.update.reserved", "item.reserved", "reusehub.saga"},
		{"transaction.update.failed", "item.reservation-failed", "reusehub.saga"},
		{"transaction.payment", "payment.completed", "reusehub.saga"},
		{"transaction.payment", "payment.failed", "reusehub.saga"},
		{"item.payment.boost", "payment.completed", "reusehub.saga"},
		{"payment.refund", "payment.refund-requested", "reusehub.saga"},
		{"notification.user", "notification.#", "reusehub.notification"},
		{"transaction.updates", "transaction.updated", "reusehub.notification"},
	}
	for _, b := range expected {
		assert.Contains(t, d.binds, b)
	}
	assert.NotContains(t, d.binds, bindCall{"item.payment.boost", "payment.failed", "reusehub.saga"})
}

func TestTopology_QuorumArgs(t *testing.T) {
	topo := NewTopology(testMessaging(), config.RabbitMQConfig{QueueType: "quorum", DeliveryLimit: 5})

	args := topo.QueueArgs("item.process")
	assert.Equal(t, "quorum", args["x-queue-type"])
	assert.Equal(t, int32(5), args["x-delivery-limit"])

	classic := NewTopology(testMessaging(), config.RabbitMQConfig{QueueType: "classic", DeliveryLimit: 5}).QueueArgs("item.process")
	assert.NotContains(t, classic, "x-queue-type")
	assert.NotContains(t, classic, "x-delivery-limit")
}
