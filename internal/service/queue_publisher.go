// Package service provides outbound integrations of the auth service,
// currently the RabbitMQ event publisher. Publish errors are logged and
// returned so callers can ignore them without interrupting the request
// that triggered the event.
package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/quickeats/quickeats/internal/queue"
)

// Publisher emits domain events to RabbitMQ. A zero URL disables
// publishing entirely, which keeps local development working without a
// broker. Connections are dialed per publish; registration volume does not
// justify a managed channel pool.
type Publisher struct {
	url string
	log *zap.Logger
}

// NewPublisher builds a Publisher for the given AMQP URL. An empty URL
// yields a disabled publisher whose methods are no-ops.
func NewPublisher(url string, log *zap.Logger) *Publisher {
	return &Publisher{url: url, log: log}
}

// PublishUserRegistered publishes a UserRegisteredEvent to the
// "user.registered" queue. Messages are persistent and the queue is
// declared durable so registrations survive a broker restart. Any failure
// is logged and returned; the caller decides whether to care.
func (p *Publisher) PublishUserRegistered(ctx context.Context, event queue.UserRegisteredEvent) error {
	if p.url == "" {
		return nil
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warn("rabbitmq dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("rabbitmq channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		queue.QueueUserRegistered, // name
		true,                      // durable
		false,                     // autoDelete
		false,                     // exclusive
		false,                     // noWait
		nil,                       // args
	); err != nil {
		p.log.Warn("rabbitmq queue declare failed", zap.Error(err))
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.log.Warn("marshal event failed", zap.Error(err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",                        // default exchange
		queue.QueueUserRegistered, // routing key = queue name
		false,                     // mandatory
		false,                     // immediate
		pub,
	); err != nil {
		p.log.Warn("rabbitmq publish failed", zap.Error(err))
		return err
	}

	return nil
}
