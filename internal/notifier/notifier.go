package notifier

import (
	"context"

	"mspro-labs/stock-watch/internal/config"
	"mspro-labs/stock-watch/internal/core/errx"
	"mspro-labs/stock-watch/internal/logx"
	"mspro-labs/stock-watch/internal/models"
)

// Sender delivers a composed message over one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Notifier fans a delta out to every configured sender.
type Notifier struct {
	senders []Sender
}

func New(senders ...Sender) *Notifier {
	return &Notifier{senders: senders}
}

// FromConfig builds the mail sender and, when chat IDs and a token are
// configured, the Telegram sender.
func FromConfig(cfg config.Watch) (*Notifier, error) {
	senders := []Sender{NewSMTPSender(cfg)}
	if len(cfg.Telegram.ChatIDs) > 0 && cfg.Telegram.Token != "" {
		tg, err := NewTelegramSender(cfg.Telegram)
		if err != nil {
			return nil, errx.Config("telegram", err)
		}
		senders = append(senders, tg)
	}
	return New(senders...), nil
}

// Notify delivers delta. An empty delta sends nothing. Every sender is
// attempted; the first failure is returned as a delivery error.
func (n *Notifier) Notify(ctx context.Context, delta models.Delta) (sent bool, err error) {
	if delta.Len() == 0 {
		return false, nil
	}
	msg, err := Compose(delta)
	if err != nil {
		return false, errx.Delivery("compose", err)
	}

	logger := logx.With("notifier")
	var firstErr error
	for _, s := range n.senders {
		if err := s.Send(ctx, msg); err != nil {
			logger.Error().Err(err).Str("channel", s.Name()).Msg("notification send failed")
			if firstErr == nil {
				firstErr = errx.Delivery(s.Name(), err)
			}
			continue
		}
		logger.Info().Str("channel", s.Name()).Int("items", len(msg.Items)).Msg("notification sent")
	}
	if firstErr != nil {
		return false, firstErr
	}
	return true, nil
}
