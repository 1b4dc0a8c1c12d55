package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/joanne1229/DressToWeather/internal/domain"
	"github.com/joanne1229/DressToWeather/internal/report"
	"github.com/joanne1229/DressToWeather/internal/weather"
)

// BotAPI is the part of *tgbotapi.BotAPI the bot uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Sender delivers text and reports to Telegram chats.
// It satisfies scheduler.Notifier.
type Sender struct {
	bot BotAPI
	log *zap.Logger
	loc *time.Location
}

func NewSender(bot BotAPI, log *zap.Logger, loc *time.Location) *Sender {
	return &Sender{bot: bot, log: log, loc: loc}
}

// SendMessage sends a plain text message to the given chat.
func (s *Sender) SendMessage(chatID int64, text string) error {
	_, err := s.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// Notify sends the report for snap to the stored channel. When there is no
// channel, or the channel cannot be reached, it goes to the user directly.
func (s *Sender) Notify(_ context.Context, pref domain.UserPreference, snap weather.Snapshot) error {
	text := report.Build(mentionOf(pref), snap, s.loc)

	dest := pref.Destination()
	err := s.SendMessage(dest, text)
	if err == nil || dest == pref.UserID {
		return err
	}
	s.log.Warn("channel unreachable; falling back to direct message",
		zap.Int64("userID", pref.UserID),
		zap.Int64("channelID", dest),
		zap.Error(err),
	)
	return s.SendMessage(pref.UserID, text)
}

func mentionOf(pref domain.UserPreference) string {
	if pref.UserName != "" {
		return pref.UserName
	}
	return "you"
}
