package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Zienararya/e-fridge/internal/config"
	"github.com/Zienararya/e-fridge/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMqClient publishes delivery-report events after each completed
// fan-out. The broker is optional; the dispatcher runs without one.
type RabbitMqClient struct {
	Conn      *amqp.Connection
	Channel   *amqp.Channel
	Config    config.RabbitMQConfig
	Connected bool
}

func NewRabbitMqClient(cfg config.RabbitMQConfig) (*RabbitMqClient, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not create a channel: %w", err)
	}
	return &RabbitMqClient{
		Conn:      conn,
		Channel:   channel,
		Config:    cfg,
		Connected: true,
	}, nil
}

func (r *RabbitMqClient) CloseConnection() {
	r.Channel.Close()
	r.Conn.Close()
}

func (r *RabbitMqClient) IsConnected() bool {
	return r != nil && r.Connected && !r.Conn.IsClosed()
}

// set up our exchange and the results queue
func (r *RabbitMqClient) SetUpExchangeAndQueue() error {
	if err := r.Channel.ExchangeDeclare(
		r.Config.Exchange,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return fmt.Errorf("error in declaring exchange: %w", err)
	}
	if _, err := r.Channel.QueueDeclare(
		r.Config.ResultsQueue,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("error declaring queue %s: %w", r.Config.ResultsQueue, err)
	}
	if err := r.Channel.QueueBind(
		r.Config.ResultsQueue,
		r.Config.ResultsQueue,
		r.Config.Exchange,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", r.Config.ResultsQueue, err)
	}
	return nil
}

func (r *RabbitMqClient) Publish(ctx context.Context, routingKey string, message interface{}) error {
	by, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	err = r.Channel.PublishWithContext(
		ctx,
		r.Config.Exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         by,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (r *RabbitMqClient) PublishReport(ctx context.Context, report models.DeliveryReport) error {
	return r.Publish(ctx, r.Config.ResultsQueue, report)
}
