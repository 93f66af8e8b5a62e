package export

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is the topic exchange lead events are published to.
const DefaultExchange = "leadsync.leads"

// publisher is the subset of *amqp.Channel the sink needs.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQP publishes lead events with routing key "lead.<action>".
type AMQP struct {
	conn     *amqp.Connection
	ch       publisher
	exchange string
}

// DialAMQP connects and declares a durable topic exchange.
func DialAMQP(url, exchange string) (*AMQP, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &AMQP{conn: conn, ch: ch, exchange: exchange}, nil
}

func (a *AMQP) Name() string { return "amqp" }

func (a *AMQP) Send(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	err = a.ch.PublishWithContext(ctx, a.exchange, RoutingKey(p.Action), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		MessageId:    p.PlaceID,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish lead event: %w", err)
	}
	return nil
}

// RoutingKey for an action, e.g. "lead.update".
func RoutingKey(a Action) string {
	return "lead." + string(a)
}

func (a *AMQP) Close() error {
	if a.ch != nil {
		_ = a.ch.Close()
	}
	if a.conn != nil {
		return a.conn.Close()
	}
	return nil
}
