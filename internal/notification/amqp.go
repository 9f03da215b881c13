package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the subset of *amqp.Channel the notifier uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type envelope struct {
	Message
	SentAt time.Time `json:"sent_at"`
}

// AMQPNotifier publishes ledger events to a durable topic exchange, routed by
// message kind.
type AMQPNotifier struct {
	mu       sync.Mutex
	ch       Channel
	exchange string
}

// NewAMQPNotifier declares exchange on ch and returns a publisher for it.
func NewAMQPNotifier(ch Channel, exchange string) (*AMQPNotifier, error) {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPNotifier{ch: ch, exchange: exchange}, nil
}

// Send publishes message with its kind as routing key. amqp channels are not
// safe for concurrent publishing, hence the mutex.
func (n *AMQPNotifier) Send(ctx context.Context, message Message) error {
	now := time.Now().UTC()
	body, err := json.Marshal(envelope{Message: message, SentAt: now})
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.ch.PublishWithContext(ctx, n.exchange, message.Kind, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    now,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", message.Kind, err)
	}
	return nil
}
