// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/poiesic/vecsync/core"
	"github.com/poiesic/vecsync/reconcile"
)

// Listener consumes item change events and applies them through the
// reconciler. Acknowledgement is manual: a handled event is acked, a
// failed one is requeued until its retry budget is spent, then dropped.
type Listener struct {
	conn       *amqp.Connection
	reconciler *reconcile.Reconciler
	logger     *slog.Logger
}

// NewListener creates a listener on an open AMQP connection.
func NewListener(conn *amqp.Connection, reconciler *reconcile.Reconciler) *Listener {
	return &Listener{
		conn:       conn,
		reconciler: reconciler,
		logger:     slog.Default().With("component", "mq_listener"),
	}
}

// Run declares the topology and consumes until the context is done or
// the broker closes the channel.
func (l *Listener) Run(ctx context.Context) error {
	ch, err := l.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := DeclareTopology(ch); err != nil {
		return err
	}

	// One unacked message at a time keeps redelivery ordering sane.
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := ch.Consume(QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consumer on %s: %w", QueueName, err)
	}

	l.logger.Info("consuming item events", "queue", QueueName)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed by broker")
			}
			l.handle(ctx, d)
		}
	}
}

// handle processes one delivery and settles it.
func (l *Listener) handle(ctx context.Context, d amqp.Delivery) {
	err := l.process(ctx, d)
	if err == nil {
		if aerr := d.Ack(false); aerr != nil {
			l.logger.Error("failed to ack delivery", "error", aerr)
		}
		return
	}

	retries := retryCount(d.Headers)
	requeue := decide(retries)
	l.logger.Warn("event processing failed",
		"routingKey", d.RoutingKey, "retries", retries, "requeue", requeue, "error", err)
	if nerr := d.Nack(false, requeue); nerr != nil {
		l.logger.Error("failed to nack delivery", "error", nerr)
	}
}

// process decodes a delivery and routes it by routing key. Deliveries
// that cannot possibly succeed on redelivery return nil so they are
// acked and dropped.
func (l *Listener) process(ctx context.Context, d amqp.Delivery) error {
	var event core.SyncEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		l.logger.Warn("dropping undecodable event", "routingKey", d.RoutingKey, "error", err)
		return nil
	}

	switch d.RoutingKey {
	case CreateKey:
		switch event.EventType {
		case core.EventUpdate:
			return l.reconciler.HandleUpdate(ctx, &event)
		case core.EventCreate:
			return l.reconciler.HandleCreate(ctx, &event)
		default:
			// A message on the upsert key with an unexpected type is
			// still an upsert from the producer's point of view.
			l.logger.Warn("unexpected event type on upsert key, treating as create",
				"itemId", event.ItemID, "eventType", event.EventType)
			return l.reconciler.HandleCreate(ctx, &event)
		}
	case DeleteKey:
		return l.reconciler.HandleDelete(ctx, &event)
	default:
		l.logger.Warn("dropping event with unknown routing key", "routingKey", d.RoutingKey)
		return nil
	}
}

// decide reports whether a failed delivery should be requeued given how
// many times it has already been retried.
func decide(retries int) bool {
	return retries < MaxDeliveryRetries
}

// retryCount reads the redelivery counter from message headers.
// Brokers and clients disagree on the integer width, so all common
// encodings are accepted.
func retryCount(headers amqp.Table) int {
	if headers == nil {
		return 0
	}
	switch v := headers[RetryCountHeader].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	default:
		return 0
	}
}
