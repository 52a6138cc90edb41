package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const publishTimeout = 5 * time.Second

// AMQPBridge carries change events between service instances over a
// RabbitMQ topic exchange. Events are published with the routing key
// "<table>.<type>" and consumed from an exclusive, auto-deleted queue bound
// to every key, then handed to the local publisher (normally the Hub).
//
// When the broker is lost the bridge degrades: events go straight to the
// local publisher, so this instance keeps working on its own.
type AMQPBridge struct {
	conn     *amqp.Connection
	pubCh    *amqp.Channel
	exchange string
	local    Publisher
	degraded atomic.Bool
	mu       sync.Mutex
	logger   zerolog.Logger
}

// NewAMQPBridge dials the broker and declares the exchange. Consumed events,
// and every event once the broker is lost, are delivered to local.
func NewAMQPBridge(url, exchange string, local Publisher, logger zerolog.Logger) (*AMQPBridge, error) {
	logger = logger.With().Str("component", "amqp-bridge").Logger()

	conn, err := amqp.Dial(url)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to RabbitMQ")
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	logger.Info().Str("exchange", exchange).Msg("connected to RabbitMQ")

	return &AMQPBridge{
		conn:     conn,
		pubCh:    ch,
		exchange: exchange,
		local:    local,
		logger:   logger,
	}, nil
}

// Degraded reports whether the bridge has fallen back to local delivery.
func (b *AMQPBridge) Degraded() bool {
	return b.degraded.Load()
}

func (b *AMQPBridge) degrade(err error) {
	if b.degraded.CompareAndSwap(false, true) {
		b.logger.Error().Err(err).Msg("lost RabbitMQ, delivering change events locally only")
	}
}

// RoutingKey returns the routing key used for an event.
func RoutingKey(e Event) string {
	return e.Table + "." + strings.ToLower(string(e.Type))
}

// Publish sends the event to the exchange. If the broker refuses it, or the
// bridge is degraded, the event is delivered to the local publisher instead.
func (b *AMQPBridge) Publish(ctx context.Context, event Event) error {
	if b.Degraded() {
		return b.local.Publish(ctx, event)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	err = b.pubCh.PublishWithContext(ctx,
		b.exchange,        // exchange
		RoutingKey(event), // routing key
		false,             // mandatory
		false,             // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   event.At,
			MessageId:   event.RecordID.String(),
			Body:        body,
		})
	if err != nil {
		b.logger.Error().
			Err(err).
			Str("table", event.Table).
			Str("record_id", event.RecordID.String()).
			Msg("failed to publish event, delivering locally")
		if b.pubCh.IsClosed() {
			b.degrade(err)
		}
		return b.local.Publish(ctx, event)
	}

	return nil
}

// Run consumes every event on the exchange and forwards it to the local
// publisher until ctx is cancelled. Losing the broker degrades the bridge
// instead of failing: the error is logged and Run returns nil.
func (b *AMQPBridge) Run(ctx context.Context) error {
	if err := b.consume(ctx); err != nil {
		b.degrade(err)
	}
	return nil
}

func (b *AMQPBridge) consume(ctx context.Context) error {
	if b.conn == nil || b.conn.IsClosed() {
		return fmt.Errorf("RabbitMQ connection is closed")
	}

	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open RabbitMQ consumer channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "#", b.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	deliveries, err := ch.Consume(
		q.Name, // queue
		"",     // consumer
		true,   // auto-ack
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("failed to consume queue: %w", err)
	}

	b.logger.Info().Str("queue", q.Name).Msg("consuming change events")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("RabbitMQ delivery channel closed")
			}
			var event Event
			if err := json.Unmarshal(d.Body, &event); err != nil {
				b.logger.Warn().Err(err).Str("routing_key", d.RoutingKey).Msg("dropping malformed event")
				continue
			}
			if err := b.local.Publish(ctx, event); err != nil {
				b.logger.Warn().Err(err).Str("table", event.Table).Msg("failed to forward event")
			}
		}
	}
}

// Close closes the channel and the connection.
func (b *AMQPBridge) Close() error {
	if b.pubCh != nil && !b.pubCh.IsClosed() {
		if err := b.pubCh.Close(); err != nil {
			return fmt.Errorf("close rabbitmq channel: %w", err)
		}
	}
	if b.conn != nil && !b.conn.IsClosed() {
		if err := b.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}
	return nil
}
