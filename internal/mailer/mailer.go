// Package mailer delivers outbound e-mail, either directly over SMTP or through a RabbitMQ job queue.
package mailer

// Attachment is a file on local disk sent along with a message.
type Attachment struct {
	Path        string `json:"path"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

// Message is a single outbound e-mail.
type Message struct {
	From        string       `json:"from"`
	To          string       `json:"to"`
	Subject     string       `json:"subject"`
	HTML        string       `json:"html,omitempty"`
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Mailer sends a message. Implementations must be safe for concurrent use.
type Mailer interface {
	Send(msg Message) error
}
