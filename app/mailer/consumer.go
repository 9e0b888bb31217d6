package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/coffeeshop/account-service/app/config"
	"github.com/coffeeshop/account-service/app/logger"
	"github.com/coffeeshop/account-service/app/metrics"
	"github.com/coffeeshop/account-service/app/services"
)

// EmailQueue is the durable queue the mailer worker reads from.
const EmailQueue = "account.emails"

const (
	maxDeliveryAttempts = 5
	initialRetryDelay   = time.Second
)

// Sender is the delivery dependency of the consumer.
type Sender interface {
	SendConfirmationCode(email string, code int) error
}

// Consumer reads confirmation email events off RabbitMQ and delivers them
// with bounded retries. A message that exhausts its attempts is acked and
// logged rather than requeued, so one bad address cannot wedge the queue.
type Consumer struct {
	ch     *amqp.Channel
	sender Sender
}

func NewConsumer(ch *amqp.Channel, sender Sender) *Consumer {
	return &Consumer{ch: ch, sender: sender}
}

// Start declares and binds the email queue, then consumes until ctx is done.
// Prefetch is 1: delivery is slow (SMTP round trip) and ordering per worker
// matters more than throughput.
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	if _, err := c.ch.QueueDeclare(
		EmailQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return fmt.Errorf("failed to declare email queue: %w", err)
	}

	if err := c.ch.QueueBind(
		EmailQueue,
		services.ConfirmationEmailRoutingKey,
		config.EventsExchange,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to bind email queue: %w", err)
	}

	msgs, err := c.ch.Consume(
		EmailQueue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	logger.Logger.Info().Str("queue", EmailQueue).Msg("mailer consumer started")

	for {
		select {
		case <-ctx.Done():
			logger.Logger.Info().Msg("mailer consumer shutting down")
			return nil
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.handleDelivery(ctx, delivery)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	requestID := ""
	if delivery.Headers != nil {
		if rid, ok := delivery.Headers["X-Request-ID"].(string); ok {
			requestID = rid
		}
	}
	log := logger.WithRequestID(requestID)

	var msg services.ConfirmationEmailMessage
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		log.Error().Err(err).Msg("malformed email event, discarding")
		delivery.Ack(false)
		return
	}
	if msg.Type != "email_confirmation" || msg.Email == "" {
		log.Error().Str("type", msg.Type).Msg("unexpected email event, discarding")
		delivery.Ack(false)
		return
	}

	delay := initialRetryDelay
	for attempt := 1; attempt <= maxDeliveryAttempts; attempt++ {
		err := c.sender.SendConfirmationCode(msg.Email, msg.Code)
		if err == nil {
			metrics.RecordEmailSent()
			delivery.Ack(false)
			log.Info().Str("email", msg.Email).Msg("confirmation email sent")
			return
		}

		log.Warn().
			Err(err).
			Str("email", msg.Email).
			Int("attempt", attempt).
			Msg("confirmation email delivery failed")

		if attempt == maxDeliveryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			delivery.Nack(false, true)
			return
		case <-time.After(delay):
		}
		delay *= 2
	}

	metrics.RecordEmailFailed()
	delivery.Ack(false)
	log.Error().
		Str("email", msg.Email).
		Int("attempts", maxDeliveryAttempts).
		Msg("confirmation email dropped after exhausting retries")
}
