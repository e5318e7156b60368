package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/periodic-tables/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	exchangeName = "periodic.events"
	exchangeType = "topic"
	eventVersion = "1.0.0"

	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 2 * time.Second
	confirmTimeout = 5 * time.Second
)

// Envelope is the message body published to the exchange.
type Envelope struct {
	EventID      string        `json:"event_id"`
	EventType    string        `json:"event_type"`
	EventVersion string        `json:"event_version"`
	Timestamp    string        `json:"timestamp"`
	Payload      domain.Change `json:"payload"`
}

// RoutingKey maps a change onto the topic exchange, e.g. "tables.table_seated".
func RoutingKey(ch domain.Change) string {
	switch ch.Kind {
	case domain.ChangeTableCreated, domain.ChangeTableSeated, domain.ChangeTableFreed:
		return "tables." + string(ch.Kind)
	case domain.ChangeReservationCreated, domain.ChangeReservationUpdated, domain.ChangeReservationStatus:
		return "reservations." + string(ch.Kind)
	default:
		return "ops." + string(ch.Kind)
	}
}

type AMQPPublisher struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *slog.Logger
}

func NewAMQPPublisher(url string, logger *slog.Logger) (*AMQPPublisher, error) {
	const op = "events.NewAMQPPublisher"

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if err := channel.ExchangeDeclare(
		exchangeName,
		exchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if err := channel.Confirm(false); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	logger.Info("connected to rabbitmq", "exchange", exchangeName)

	return &AMQPPublisher{
		conn:    conn,
		channel: channel,
		logger:  logger,
	}, nil
}

// Publish sends ch and waits for the broker confirm, retrying with
// exponential backoff.
func (p *AMQPPublisher) Publish(ctx context.Context, ch domain.Change) error {
	const op = "events.AMQPPublisher.Publish"

	env := Envelope{
		EventID:      uuid.NewString(),
		EventType:    string(ch.Kind),
		EventVersion: eventVersion,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Payload:      ch,
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	// confirms are matched by order on the channel
	p.mu.Lock()
	defer p.mu.Unlock()

	routingKey := RoutingKey(ch)
	backoff := initialBackoff
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff = min(backoff*2, maxBackoff)
			}
		}

		confirm, err := p.channel.PublishWithDeferredConfirmWithContext(
			ctx,
			exchangeName,
			routingKey,
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Timestamp:    time.Now(),
				MessageId:    env.EventID,
				Body:         body,
				Headers: amqp.Table{
					"event_type":    env.EventType,
					"event_version": env.EventVersion,
				},
			},
		)
		if err != nil {
			lastErr = err
			p.logger.Warn("publish failed, retrying", "attempt", attempt+1, "error", err)
			continue
		}

		waitCtx, cancel := context.WithTimeout(ctx, confirmTimeout)
		acked, err := confirm.WaitContext(waitCtx)
		cancel()

		switch {
		case err != nil:
			lastErr = err
		case !acked:
			lastErr = errors.New("event not acknowledged")
		default:
			p.logger.Debug("event published", "event_id", env.EventID, "routing_key", routingKey)
			return nil
		}

		p.logger.Warn("publish not confirmed, retrying", "attempt", attempt+1, "error", lastErr)
	}

	return fmt.Errorf("%s: after %d attempts: %w", op, maxRetries, lastErr)
}

func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.Error("failed to close amqp channel", "error", err)
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
