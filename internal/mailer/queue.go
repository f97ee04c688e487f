package mailer

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/textproto"

	"etalase/pkg/rabbitmq"

	"github.com/rs/zerolog/log"
)

// EmailQueue is the durable queue carrying e-mail jobs.
const EmailQueue = "email_queue"

// Publisher is satisfied by *rabbitmq.Client.
type Publisher interface {
	PublishJSON(queue string, v interface{}) error
}

// QueueMailer enqueues messages for a Worker instead of sending them inline.
type QueueMailer struct {
	publisher Publisher
}

// NewQueueMailer creates a QueueMailer publishing to EmailQueue.
func NewQueueMailer(p Publisher) *QueueMailer {
	return &QueueMailer{publisher: p}
}

// Send implements Mailer. A nil error means the job was accepted by the broker.
func (q *QueueMailer) Send(msg Message) error {
	if err := q.publisher.PublishJSON(EmailQueue, msg); err != nil {
		return fmt.Errorf("enqueue email to %s: %w", msg.To, err)
	}
	return nil
}

// Worker delivers queued e-mail jobs with another Mailer, usually an SMTPMailer.
type Worker struct {
	delivery Mailer
}

// NewWorker creates a Worker that sends jobs through delivery.
func NewWorker(delivery Mailer) *Worker {
	return &Worker{delivery: delivery}
}

// Handle processes one job body. Undecodable or addressless jobs and permanent SMTP
// rejections (5xx replies) are discarded; other delivery failures are returned so the
// job is retried.
func (w *Worker) Handle(body []byte) error {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("decode email job: %v: %w", err, rabbitmq.ErrDiscard)
	}
	if msg.To == "" {
		return fmt.Errorf("email job has no recipient: %w", rabbitmq.ErrDiscard)
	}

	if err := w.delivery.Send(msg); err != nil {
		if isPermanent(err) {
			return fmt.Errorf("%v: %w", err, rabbitmq.ErrDiscard)
		}
		return err
	}
	log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("queued email delivered")
	return nil
}

// isPermanent reports whether the SMTP server rejected the message with a 5xx reply.
func isPermanent(err error) bool {
	var reply *textproto.Error
	return errors.As(err, &reply) && reply.Code >= 500 && reply.Code < 600
}
