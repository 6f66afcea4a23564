// Package mailer delivers transactional email. Provider mechanics stay
// behind the Mailer interface; flows only hand over a recipient and a body.
package mailer

import (
	"context"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"

	"github.com/spec-kit/estates-web/internal/config"
)

// Message is a single outbound transactional email.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

// Mailer sends transactional messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer delivers messages through an SMTP relay.
type SMTPMailer struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

// NewSMTP builds a mailer from SMTP settings.
func NewSMTP(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:     cfg.From,
		fromName: cfg.FromName,
	}
}

// Send delivers one message. gomail offers no context plumbing; the ctx is
// accepted for interface symmetry and honored before dialing.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	out := gomail.NewMessage()
	out.SetAddressHeader("From", m.from, m.fromName)
	out.SetAddressHeader("To", msg.To, msg.ToName)
	out.SetHeader("Subject", msg.Subject)
	out.SetBody("text/html", msg.HTML)

	return m.dialer.DialAndSend(out)
}

// LogMailer records messages to the log instead of sending them, used when
// SMTP is unconfigured and in tests.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer builds the log-only mailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the message envelope. Bodies carry tokens, so only the subject
// and recipient are recorded.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("mail suppressed, smtp not configured",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}
