package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/streadway/amqp"

	"github.com/lakekeeper/catalog/internal/platform/mlog"
)

// AMQPListener publishes events to a RabbitMQ exchange, the way the
// teacher's common/mrabbitmq.RabbitMQConnection lazily connects and
// exposes a channel accessor. This module only needs to publish, never
// consume, so the channel is opened once and reused.
type AMQPListener struct {
	url      string
	exchange string
	logger   mlog.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewAMQPListener builds a listener that publishes to exchange on the
// broker at url. The connection is opened lazily on first Handle call.
func NewAMQPListener(url, exchange string, logger mlog.Logger) *AMQPListener {
	return &AMQPListener{url: url, exchange: exchange, logger: logger}
}

func (l *AMQPListener) Name() string { return "amqp:" + l.exchange }

func (l *AMQPListener) connect() (*amqp.Channel, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.channel != nil {
		return l.channel, nil
	}

	conn, err := amqp.Dial(l.url)
	if err != nil {
		return nil, fmt.Errorf("events: amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("events: amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(l.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()

		return nil, fmt.Errorf("events: amqp exchange declare: %w", err)
	}

	l.conn = conn
	l.channel = ch

	l.logger.Infof("events: connected to amqp exchange %s", l.exchange)

	return ch, nil
}

func (l *AMQPListener) Handle(_ context.Context, event Event) error {
	ch, err := l.connect()
	if err != nil {
		return err
	}

	return ch.Publish(l.exchange, event.Kind, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        event.Payload,
	})
}

// Close tears down the channel and connection, if open.
func (l *AMQPListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.channel != nil {
		_ = l.channel.Close()
	}

	if l.conn != nil {
		return l.conn.Close()
	}

	return nil
}
