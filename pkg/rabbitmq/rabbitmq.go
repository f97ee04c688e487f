package rabbitmq

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	amqp "github.com/streadway/amqp"
)

// ErrDiscard marks a handler error for a message that can never succeed.
// Such messages are parked on the failed queue without further attempts.
var ErrDiscard = errors.New("discard message")

const (
	// AttemptsHeader counts how many times a message has been handled.
	AttemptsHeader = "x-attempts"
	// ErrorHeader carries the last handler error of a parked message.
	ErrorHeader = "x-error"
	// FailedSuffix names the queue holding messages that ran out of attempts.
	FailedSuffix = ".failed"
	// DefaultMaxAttempts applies when Config.MaxAttempts is not positive.
	DefaultMaxAttempts = 3
)

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	maxAttempts int
	// amqp.Channel is not safe for concurrent publishes.
	mu sync.Mutex
}

// Config holds RabbitMQ connection details. MaxAttempts bounds how often a consumed
// message is handled before it is parked on "<queue>.failed".
type Config struct {
	URL         string
	Queues      []string
	MaxAttempts int
}

// NewClient connects to RabbitMQ, opens a channel and declares every queue in cfg,
// and its failed queue, as durable.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	for _, queue := range cfg.Queues {
		if err := declarePair(ch, queue); err != nil {
			ch.Close()
			conn.Close()
			return nil, err
		}
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	log.Info().Strs("queues", cfg.Queues).Int("max_attempts", maxAttempts).Msg("RabbitMQ client connected")

	return &Client{
		conn:        conn,
		channel:     ch,
		maxAttempts: maxAttempts,
	}, nil
}

func declarePair(ch *amqp.Channel, queue string) error {
	if err := declare(ch, queue); err != nil {
		return err
	}
	return declare(ch, queue+FailedSuffix)
}

func declare(ch *amqp.Channel, queue string) error {
	_, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s: %w", queue, err)
	}
	return nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Publish sends body as a persistent JSON message to queue via the default exchange.
func (c *Client) Publish(queue string, body []byte) error {
	return c.publish(queue, body, nil)
}

func (c *Client) publish(queue string, body []byte, headers amqp.Table) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.channel.Publish(
		"",    // exchange: default exchange
		queue, // routing key: the queue name
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			Headers:      headers,
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", queue, err)
	}
	return nil
}

// PublishJSON marshals v and publishes it to queue.
func (c *Client) PublishJSON(queue string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message for %s: %w", queue, err)
	}
	return c.Publish(queue, body)
}

// Consume starts a goroutine that feeds every delivery on queue to handler.
// A nil error acks the message. Any other error republishes it with a higher attempt
// count until the attempts run out; then, or at once for ErrDiscard, it is parked on
// "<queue>.failed".
func (c *Client) Consume(queue string, handler func(body []byte) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	if err := declarePair(c.channel, queue); err != nil {
		return err
	}

	msgs, err := c.channel.Consume(
		queue, // queue
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

	log.Info().Str("queue", queue).Msg("waiting for messages")

	s := settler{queue: queue, maxAttempts: c.maxAttempts, publish: c.publish}
	go func() {
		for msg := range msgs {
			attempt := attemptsOf(msg.Headers) + 1
			s.settle(msg, msg.Body, attempt, handler(msg.Body))
		}
		log.Info().Str("queue", queue).Msg("consumer stopped")
	}()

	return nil
}

// acknowledger is the part of amqp.Delivery used to settle a message.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// settler decides what happens to a delivery once its handler returned.
type settler struct {
	queue       string
	maxAttempts int
	publish     func(queue string, body []byte, headers amqp.Table) error
}

func (s settler) settle(msg acknowledger, body []byte, attempt int, err error) {
	if err == nil {
		if ackErr := msg.Ack(false); ackErr != nil {
			log.Error().Err(ackErr).Msg("failed to ack message")
		}
		return
	}

	logger := log.With().Str("queue", s.queue).Int("attempt", attempt).Err(err).Logger()

	if errors.Is(err, ErrDiscard) || attempt >= s.maxAttempts {
		failed := s.queue + FailedSuffix
		headers := amqp.Table{AttemptsHeader: int64(attempt), ErrorHeader: err.Error()}
		if pubErr := s.publish(failed, body, headers); pubErr != nil {
			logger.Error().AnErr("publish_error", pubErr).Msg("failed to park message, dropping it")
			if nackErr := msg.Nack(false, false); nackErr != nil {
				log.Error().Err(nackErr).Msg("failed to nack message")
			}
			return
		}
		logger.Warn().Str("failed_queue", failed).Msg("message parked")
		if ackErr := msg.Ack(false); ackErr != nil {
			log.Error().Err(ackErr).Msg("failed to ack message")
		}
		return
	}

	if pubErr := s.publish(s.queue, body, amqp.Table{AttemptsHeader: int64(attempt)}); pubErr != nil {
		logger.Error().AnErr("publish_error", pubErr).Msg("failed to republish message, requeueing")
		if nackErr := msg.Nack(false, true); nackErr != nil {
			log.Error().Err(nackErr).Msg("failed to nack message")
		}
		return
	}
	logger.Warn().Msg("message handler failed, retrying")
	if ackErr := msg.Ack(false); ackErr != nil {
		log.Error().Err(ackErr).Msg("failed to ack message")
	}
}

// attemptsOf reads AttemptsHeader, treating a missing or malformed value as zero.
func attemptsOf(headers amqp.Table) int {
	switch v := headers[AttemptsHeader].(type) {
	case int:
		return v
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	default:
		return 0
	}
}
