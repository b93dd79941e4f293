package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"content_resolver/internal/domain"
)

type RabbitMQ struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *slog.Logger
}

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		cfg.QueueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	err = ch.QueueBind(
		q.Name,
		cfg.RoutingKey,
		cfg.Exchange,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)

	return &RabbitMQ{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger,
	}, nil
}

const EventContentResolved = "content.resolved"

// ContentMessage announces a persisted resolution to downstream consumers.
type ContentMessage struct {
	Event      string               `json:"event"`
	RequestID  string               `json:"request_id"`
	Kind       domain.SourceKind    `json:"kind"`
	Degraded   bool                 `json:"degraded"`
	Content    domain.Content       `json:"content"`
	Service    *domain.Service      `json:"service,omitempty"`
	Author     *domain.Author       `json:"author,omitempty"`
	Method     domain.CreatorMethod `json:"creator_method,omitempty"`
	Confidence float64              `json:"creator_confidence,omitempty"`
	Timestamp  time.Time            `json:"timestamp"`
}

func NewContentMessage(res *domain.Resolution, now time.Time) (ContentMessage, error) {
	if res == nil || res.Content == nil {
		return ContentMessage{}, errors.New("resolution has no content")
	}

	msg := ContentMessage{
		Event:     EventContentResolved,
		RequestID: res.RequestID,
		Kind:      res.Kind,
		Degraded:  res.Degraded,
		Content:   *res.Content,
		Service:   res.Service,
		Author:    res.Author,
		Timestamp: now.UTC(),
	}
	if res.Creator != nil {
		msg.Method = res.Creator.Method
		msg.Confidence = res.Creator.Confidence
	}
	return msg, nil
}

func (r *RabbitMQ) Publish(ctx context.Context, res *domain.Resolution) error {
	msg, err := NewContentMessage(res, time.Now())
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		r.routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    res.RequestID,
			Type:         EventContentResolved,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	r.logger.Debug("published content",
		"content_id", res.Content.ID,
		"request_id", res.RequestID,
	)

	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
