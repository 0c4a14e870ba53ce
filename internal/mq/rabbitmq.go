package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/postboard/apiserver/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQClient publishes to a topic exchange named after the event channel.
// Each subscriber gets its own exclusive queue bound with its pattern.
type RabbitMQClient struct {
	conn          *amqp.Connection
	channel       *amqp.Channel
	exchange      string
	durable       bool
	autoDelete    bool
	prefetchCount int
}

// NewRabbitMQClient dials the broker and declares the exchange.
func NewRabbitMQClient(cfg config.RabbitMQConfig, exchange string) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	if strings.TrimSpace(exchange) == "" {
		return nil, errors.New("rabbitmq exchange is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, cfg.QueueDurable, cfg.QueueAutoDelete, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}

	return &RabbitMQClient{
		conn:          conn,
		channel:       ch,
		exchange:      exchange,
		durable:       cfg.QueueDurable,
		autoDelete:    cfg.QueueAutoDelete,
		prefetchCount: cfg.PrefetchCount,
	}, nil
}

// Publish sends a JSON payload to the exchange under routingKey.
func (r *RabbitMQClient) Publish(ctx context.Context, routingKey string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(routingKey) == "" {
		return "", errors.New("rabbitmq routing key is required")
	}

	headers := amqp.Table{}
	for key, value := range attrs {
		headers[key] = value
	}

	deliveryMode := amqp.Transient
	if r.durable {
		deliveryMode = amqp.Persistent
	}

	messageID := uuid.NewString()
	err := r.channel.PublishWithContext(ctx, r.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: deliveryMode,
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
		Body:         data,
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

// Subscribe binds a private queue to the exchange and consumes until ctx ends.
func (r *RabbitMQClient) Subscribe(ctx context.Context, pattern string, handler Handler) error {
	if pattern == "" {
		pattern = "#"
	}

	if r.prefetchCount > 0 {
		if err := r.channel.Qos(r.prefetchCount, 0, false); err != nil {
			return err
		}
	}

	queue, err := r.channel.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := r.channel.QueueBind(queue.Name, pattern, r.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	consumerTag := "postboard-" + uuid.NewString()
	deliveries, err := r.channel.Consume(queue.Name, consumerTag, false, true, false, false, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = r.channel.Cancel(consumerTag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			message := Message{
				ID:         delivery.MessageId,
				RoutingKey: delivery.RoutingKey,
				Data:       delivery.Body,
				Attributes: headersToAttributes(delivery.Headers),
			}
			if err := handler(ctx, message); err != nil {
				_ = delivery.Nack(false, false)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

// Close closes the underlying channel and connection.
func (r *RabbitMQClient) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func headersToAttributes(headers amqp.Table) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for key, value := range headers {
		switch typed := value.(type) {
		case string:
			attrs[key] = typed
		case []byte:
			attrs[key] = string(typed)
		default:
			attrs[key] = fmt.Sprint(value)
		}
	}
	return attrs
}
