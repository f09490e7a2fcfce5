package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/poiesic/vecsync/core"
)

// Publisher emits item change events to the exchange. Catalog-side
// services use it to announce creates, updates, and deletes.
type Publisher struct {
	ch     *amqp.Channel
	logger *slog.Logger
}

// NewPublisher creates a publisher and declares the topology on the
// given channel.
func NewPublisher(ch *amqp.Channel) (*Publisher, error) {
	if err := DeclareTopology(ch); err != nil {
		return nil, err
	}
	return &Publisher{
		ch:     ch,
		logger: slog.Default().With("component", "mq_publisher"),
	}, nil
}

// Publish sends one event. Delete events go out on the delete key,
// everything else on the upsert key.
func (p *Publisher) Publish(ctx context.Context, event *core.SyncEvent) error {
	if err := core.ValidateSyncEvent(event); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	key := CreateKey
	if event.EventType == core.EventDelete {
		key = DeleteKey
	}

	err = p.ch.PublishWithContext(ctx, ExchangeName, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Headers:      amqp.Table{RetryCountHeader: int32(0)},
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event for item %d: %w", event.ItemID, err)
	}

	p.logger.Info("event published", "itemId", event.ItemID, "eventType", event.EventType, "routingKey", key)
	return nil
}
