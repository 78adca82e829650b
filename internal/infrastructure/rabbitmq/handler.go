package rabbitmq

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Message is a decoded view of a delivery handed to a Handler.
type Message struct {
	Queue       string
	RoutingKey  string
	MessageID   string
	Body        []byte
	Redelivered bool
	Headers     amqp.Table
}

// Handler processes one message. A nil error acks the delivery, an error
// wrapped with Permanent dead-letters it and any other error requeues it.
type Handler func(ctx context.Context, msg Message) error

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return "permanent: " + e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth redelivering.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	var p *permanentError
	if errors.As(err, &p) {
		return err
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// RouteByKey dispatches a queue bound to several routing keys. A key with no
// route is dead-lettered.
func RouteByKey(routes map[string]Handler) Handler {
	return func(ctx context.Context, msg Message) error {
		h, ok := routes[msg.RoutingKey]
		if !ok {
			return Permanent(fmt.Errorf("no handler for routing key %q", msg.RoutingKey))
		}
		return h(ctx, msg)
	}
}

// Registry maps queue names to handlers. It is filled once at startup.
type Registry struct {
	handlers map[string]Handler
	queues   []string
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds h to queue. Registering a queue twice panics.
func (r *Registry) Register(queue string, h Handler) *Registry {
	if _, exists := r.handlers[queue]; exists {
		panic("rabbitmq: handler already registered for queue " + queue)
	}
	r.handlers[queue] = h
	r.queues = append(r.queues, queue)
	return r
}

// Queues returns the registered queues in registration order.
func (r *Registry) Queues() []string {
	out := make([]string, len(r.queues))
	copy(out, r.queues)
	return out
}

func (r *Registry) Handler(queue string) (Handler, bool) {
	h, ok := r.handlers[queue]
	return h, ok
}
