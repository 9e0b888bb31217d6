package services

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/coffeeshop/account-service/app/config"
)

// ConfirmationEmailRoutingKey is the routing key the mailer worker binds to.
const ConfirmationEmailRoutingKey = "email.confirmation"

// EventPublisher defines the minimal interface the confirmation service needs
// to hand email delivery off to the worker.
type EventPublisher interface {
	PublishConfirmationEmail(ctx context.Context, email string, code int) error
}

// RabbitMQPublisher is a concrete implementation using RabbitMQ.
type RabbitMQPublisher struct {
	ch *amqp.Channel
}

func NewRabbitMQPublisher(ch *amqp.Channel) *RabbitMQPublisher {
	return &RabbitMQPublisher{ch: ch}
}

// ConfirmationEmailMessage is the wire format consumed by the mailer worker.
type ConfirmationEmailMessage struct {
	Type  string `json:"type"`
	Email string `json:"email"`
	Code  int    `json:"code"`
}

// getRequestIDFromContext extracts request ID from context (avoiding import cycle)
func getRequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value("request_id").(string); ok {
		return requestID
	}
	return ""
}

// PublishConfirmationEmail publishes a confirmation-code email event to the
// accounts.events exchange. Delivery is fire-and-forget from the caller's
// point of view; retries happen in the worker.
func (p *RabbitMQPublisher) PublishConfirmationEmail(ctx context.Context, email string, code int) error {
	msg := ConfirmationEmailMessage{
		Type:  "email_confirmation",
		Email: email,
		Code:  code,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	headers := make(amqp.Table)
	if requestID := getRequestIDFromContext(ctx); requestID != "" {
		headers["X-Request-ID"] = requestID
	}

	return p.ch.PublishWithContext(
		ctx,
		config.EventsExchange,       // exchange
		ConfirmationEmailRoutingKey, // routing key
		false,                       // mandatory
		false,                       // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Headers:     headers,
		},
	)
}
