// Package service wires domain events to external systems. The queue
// notifier publishes booking lifecycle events to RabbitMQ; publish
// errors are returned so the caller can log and move on without
// interrupting the main request flow.
package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/0SilentFox0/fit-app/internal/queue"
	"github.com/0SilentFox0/fit-app/internal/scheduling"
)

const eventsQueueName = "booking.events"

// QueueNotifier implements scheduling.Notifier by publishing each event
// as a persistent JSON message on the booking.events queue. A fresh
// connection is dialed per publish; event volume is a handful per
// booking, not a throughput concern.
type QueueNotifier struct {
	url string
}

// NewQueueNotifier returns a notifier that publishes to the broker at url.
func NewQueueNotifier(url string) *QueueNotifier {
	if url == "" {
		url = queue.BrokerURL()
	}
	return &QueueNotifier{url: url}
}

// Notify publishes one lifecycle event. The queue is declared durable
// on every publish so ordering of producer/consumer startup does not
// matter.
func (n *QueueNotifier) Notify(ctx context.Context, ev scheduling.Event) error {
	conn, err := amqp.Dial(n.url)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		eventsQueueName, // name
		true,            // durable
		false,           // autoDelete
		false,           // exclusive
		false,           // noWait
		nil,             // args
	); err != nil {
		return err
	}

	body, err := json.Marshal(queue.NotificationEvent{
		Kind:       string(ev.Kind),
		TrainerID:  ev.TrainerID,
		ClientID:   ev.ClientID,
		SlotID:     ev.SlotID,
		RequestID:  ev.RequestID,
		BookingID:  ev.BookingID,
		OccurredAt: ev.OccurredAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	return ch.PublishWithContext(ctx,
		"",              // default exchange
		eventsQueueName, // routing key = queue name
		false,           // mandatory
		false,           // immediate
		pub,
	)
}
