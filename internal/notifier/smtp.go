package notifier

import (
	"context"
	"errors"

	"github.com/wneessen/go-mail"

	"mspro-labs/stock-watch/internal/config"
)

// SMTPSender submits mail through an authenticated relay with mandatory
// STARTTLS.
type SMTPSender struct {
	host       string
	port       int
	sender     string
	password   string
	recipients []string
}

func NewSMTPSender(cfg config.Watch) *SMTPSender {
	return &SMTPSender{
		host:       cfg.SMTP.Host,
		port:       cfg.SMTP.Port,
		sender:     cfg.Sender,
		password:   cfg.Password,
		recipients: cfg.Recipients,
	}
}

func (s *SMTPSender) Name() string { return "smtp" }

func (s *SMTPSender) buildMessage(msg Message) (*mail.Msg, error) {
	if len(s.recipients) == 0 {
		return nil, errors.New("no recipients configured")
	}
	m := mail.NewMsg()
	if err := m.From(s.sender); err != nil {
		return nil, err
	}
	if err := m.To(s.recipients...); err != nil {
		return nil, err
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := s.buildMessage(msg)
	if err != nil {
		return err
	}
	c, err := mail.NewClient(s.host,
		mail.WithPort(s.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.sender),
		mail.WithPassword(s.password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}
	return c.DialAndSendWithContext(ctx, m)
}
