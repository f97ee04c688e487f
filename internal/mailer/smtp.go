package mailer

import (
	"fmt"

	"etalase/internal/config"

	"gopkg.in/gomail.v2"
)

// dialSender is satisfied by *gomail.Dialer.
type dialSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer sends messages through an authenticated SMTP server.
type SMTPMailer struct {
	dialer dialSender
}

// NewSMTPMailer creates an SMTPMailer from the mail settings.
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)}
}

// Send implements Mailer. Each call opens its own SMTP session.
func (m *SMTPMailer) Send(msg Message) error {
	if err := m.dialer.DialAndSend(buildMessage(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

func buildMessage(msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)

	switch {
	case msg.HTML != "" && msg.Text != "":
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	case msg.HTML != "":
		m.SetBody("text/html", msg.HTML)
	default:
		m.SetBody("text/plain", msg.Text)
	}

	for _, a := range msg.Attachments {
		settings := []gomail.FileSetting{gomail.Rename(a.Filename)}
		if a.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}))
		}
		m.Attach(a.Path, settings...)
	}
	return m
}
