package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// ExchangeName is the direct exchange item events are published to.
	ExchangeName = "catalog.item.exchange"

	// QueueName is the durable queue the listener consumes from.
	QueueName = "catalog.item.sync"

	// CreateKey routes create and update events.
	CreateKey = "item.upsert"

	// DeleteKey routes delete events.
	DeleteKey = "item.delete"

	// RetryCountHeader counts redeliveries of one message.
	RetryCountHeader = "x-retry-count"

	// MaxDeliveryRetries bounds redelivery before a message is dropped.
	MaxDeliveryRetries = 3
)

// DeclareTopology declares the exchange, queue, and bindings used by
// both the publisher and the listener. Declarations are idempotent, so
// every process declares on startup.
func DeclareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(ExchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", ExchangeName, err)
	}

	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", QueueName, err)
	}

	for _, key := range []string{CreateKey, DeleteKey} {
		if err := ch.QueueBind(QueueName, key, ExchangeName, false, nil); err != nil {
			return fmt.Errorf("failed to bind %s with key %s: %w", QueueName, key, err)
		}
	}
	return nil
}
