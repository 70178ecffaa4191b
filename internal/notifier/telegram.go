package notifier

import (
	"context"
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"

	"mspro-labs/stock-watch/internal/config"
)

// TelegramSender posts the message text to a list of chats.
type TelegramSender struct {
	bot   *tele.Bot
	chats []int64
}

func NewTelegramSender(cfg config.Telegram) (*TelegramSender, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	b, err := tele.NewBot(tele.Settings{
		URL:     cfg.APIURL,
		Token:   cfg.Token,
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	return &TelegramSender{bot: b, chats: cfg.ChatIDs}, nil
}

func (s *TelegramSender) Name() string { return "telegram" }

func (s *TelegramSender) Send(_ context.Context, msg Message) error {
	for _, id := range s.chats {
		if _, err := s.bot.Send(&tele.Chat{ID: id}, msg.Body, &tele.SendOptions{DisableWebPagePreview: true}); err != nil {
			return err
		}
	}
	return nil
}
