package rabbitmq

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Client is a single-queue RabbitMQ client for the result deliveries queue.
type Client struct {
	ctx       context.Context
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
}

// NewClient dials the broker, retrying for a while since the broker may
// still be starting up, and declares the durable deliveries queue.
func NewClient(ctx context.Context, amqpURL, queueName string) (*Client, error) {
	var conn *amqp.Connection

	err := backoff.Retry(func() error {
		var err error
		if conn, err = amqp.Dial(amqpURL); err != nil {
			slog.ErrorContext(ctx, "failed to connect to rabbitmq.. retrying...", "error", err)
			return err
		}

		return nil
	}, backoff.WithMaxRetries(backoff.NewConstantBackOff(3*time.Second), 5))
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		if err2 := conn.Close(); err2 != nil {
			slog.Error("error occurred while closing connection", "error", err2.Error())
		}

		return nil, err
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		if err2 := ch.Close(); err2 != nil {
			slog.Error("error occurred while closing channel", "error", err2.Error())
		}
		if err2 := conn.Close(); err2 != nil {
			slog.Error("error occurred while closing connection", "error", err2.Error())
		}

		return nil, err
	}

	return &Client{
		ctx:       ctx,
		conn:      conn,
		channel:   ch,
		queueName: queueName,
	}, nil
}

func (c *Client) PublishMessage(body string) error {
	return c.channel.PublishWithContext(
		c.ctx,
		"",          // exchange
		c.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        []byte(body),
		})
}

func (c *Client) ConsumeMessages(consumerName string, handler func(string)) error {
	msgs, err := c.channel.ConsumeWithContext(
		c.ctx,
		c.queueName,  // queue
		consumerName, // consumer
		true,         // auto-ack
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		return err
	}

	go func() {
		for d := range msgs {
			handler(string(d.Body))
		}
	}()

	return nil
}

func (c *Client) Close() error {
	if err := c.channel.Close(); err != nil {
		return err
	}

	return c.conn.Close()
}

func (c *Client) IsHealthy() bool {
	if c.conn.IsClosed() {
		slog.Error("RabbitMQ connection is closed, Rabbit is not healthy")
		return false
	}

	ch, err := c.conn.Channel()
	if err != nil {
		slog.Error("Failed to open RabbitMQ channel, Rabbit is not healthy", "error", err)
		return false
	}
	defer func() {
		if err = ch.Close(); err != nil {
			slog.Error("Error occurred while closing rabbit channel created for health check", "error", err.Error())
		}
	}()

	return true
}
