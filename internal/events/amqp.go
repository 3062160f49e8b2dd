package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPSink publishes events as persistent JSON messages on a topic
// exchange, routed by event type.
type AMQPSink struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger
}

// NewAMQPSink dials url and declares a durable topic exchange.
func NewAMQPSink(url, exchange string, logger *zap.Logger) (*AMQPSink, error) {
	if url == "" {
		return nil, errors.New("amqp sink: events.url is required")
	}
	if exchange == "" {
		exchange = DefaultConfig().Exchange
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	logger.Info("event publisher ready", zap.String("exchange", exchange))
	return &AMQPSink{conn: conn, channel: channel, exchange: exchange, logger: logger}, nil
}

func (s *AMQPSink) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.channel.PublishWithContext(ctx,
		s.exchange,
		string(e.Type),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    e.ID,
			Timestamp:    e.Timestamp,
			Body:         body,
			Headers: amqp.Table{
				"event_type":   string(e.Type),
				"session_code": e.SessionCode,
			},
		},
	)
}

func (s *AMQPSink) Close() error {
	if err := s.channel.Close(); err != nil {
		s.logger.Warn("close RabbitMQ channel", zap.Error(err))
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("close RabbitMQ connection: %w", err)
	}
	return nil
}
