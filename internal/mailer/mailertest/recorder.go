// Package mailertest provides an in-memory Mailer for tests.
package mailertest

import (
	"sync"

	"etalase/internal/mailer"
)

// Recorder stores every message it is asked to send. Setting Err makes Send fail.
type Recorder struct {
	mu   sync.Mutex
	sent []mailer.Message
	Err  error
}

// Send implements mailer.Mailer.
func (r *Recorder) Send(msg mailer.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, msg)
	return nil
}

// Sent returns a copy of the delivered messages.
func (r *Recorder) Sent() []mailer.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]mailer.Message, len(r.sent))
	copy(out, r.sent)
	return out
}
