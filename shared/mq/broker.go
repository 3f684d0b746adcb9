// Package mq provides the RabbitMQ client used to fan generation outcomes
// out of the relay. Uses a topic exchange so consumers subscribe to routing
// key patterns.
package mq

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/forge-ai/promptforge/shared/events"
)

const (
	Exchange     = "promptforge.events"
	ExchangeType = "topic"

	DefaultAttempts = 10
)

// Publisher is the publishing half of the broker.
type Publisher interface {
	PublishEvent(ctx context.Context, routingKey string, payload any) error
}

var _ Publisher = (*Broker)(nil)

// Broker wraps an AMQP connection and channel.
type Broker struct {
	url      string
	attempts int

	mu   sync.Mutex // guards ch for publishing
	conn *amqp.Connection
	ch   *amqp.Channel
}

// New connects to RabbitMQ and declares the exchange.
func New(amqpURL string) (*Broker, error) {
	return Dial(amqpURL, DefaultAttempts)
}

// Dial is New with an explicit number of connection attempts. Attempts
// back off linearly, one more second each time.
func Dial(amqpURL string, attempts int) (*Broker, error) {
	b := &Broker{url: amqpURL, attempts: max(attempts, 1)}
	if err := b.connect(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Broker) connect() error {
	var err error
	for attempt := 1; attempt <= b.attempts; attempt++ {
		b.conn, err = amqp.Dial(b.url)
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("rabbitmq connection failed")
		if attempt < b.attempts {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}
	if err != nil {
		return fmt.Errorf("rabbitmq connect after %d attempts: %w", b.attempts, err)
	}

	b.ch, err = b.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}

	return b.ch.ExchangeDeclare(
		Exchange,
		ExchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
}

// Publish sends a message to the topic exchange with the given routing key.
func (b *Broker) Publish(ctx context.Context, routingKey string, body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ch.PublishWithContext(ctx,
		Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// PublishEvent wraps payload in an events.Envelope and publishes it.
func (b *Broker) PublishEvent(ctx context.Context, routingKey string, payload any) error {
	body, err := events.Wrap(routingKey, payload)
	if err != nil {
		return fmt.Errorf("wrap %s: %w", routingKey, err)
	}
	return b.Publish(ctx, routingKey, body)
}

// Subscribe binds a named durable queue to the exchange using a routing key
// pattern such as "generation.#" or "generation.failed".
func (b *Broker) Subscribe(queueName, pattern string) (<-chan amqp.Delivery, error) {
	q, err := b.ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queueName, err)
	}

	if err := b.ch.QueueBind(q.Name, pattern, Exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue %s to %s: %w", queueName, pattern, err)
	}

	// Prefetch 1: one unacked message at a time
	if err := b.ch.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return b.ch.Consume(
		q.Name,
		"",    // consumer tag, auto-generated
		false, // manual ack after processing
		false, false, false, nil,
	)
}

// Close shuts down channel and connection.
func (b *Broker) Close() {
	if b.ch != nil {
		b.ch.Close()
	}
	if b.conn != nil {
		b.conn.Close()
	}
}
