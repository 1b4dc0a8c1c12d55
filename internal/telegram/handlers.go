package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/joanne1229/DressToWeather/internal/domain"
	"github.com/joanne1229/DressToWeather/internal/report"
)

// --- Generic helpers ---

func (r *Router) reply(msg *tgbotapi.Message, text string) {
	if err := r.deps.Sender.SendMessage(msg.Chat.ID, text); err != nil {
		r.log.Warn("reply failed", zap.Int64("chatID", msg.Chat.ID), zap.Error(err))
	}
}

// mention names the author of msg the way reports address them.
func mention(msg *tgbotapi.Message) string {
	u := msg.From
	switch {
	case u == nil:
		return "you"
	case u.UserName != "":
		return "@" + u.UserName
	case u.FirstName != "":
		return u.FirstName
	default:
		return "you"
	}
}

// parseSetLocationArgs splits "<location words...> <HH:MM>".
func parseSetLocationArgs(args string) (location, clock string, err error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "", "", domain.NewValidationError("arguments", "expected <location> <HH:MM>")
	}
	return strings.Join(fields[:len(fields)-1], " "), fields[len(fields)-1], nil
}

// --- Commands ---

func (r *Router) handleHelp(msg *tgbotapi.Message) {
	out := tgbotapi.NewMessage(msg.Chat.ID, helpMessage(r.deps.Location.String()))
	if msg.Chat.IsPrivate() {
		out.ReplyMarkup = mainMenuKeyboard()
	}
	if _, err := r.deps.Sender.bot.Send(out); err != nil {
		r.log.Warn("help reply failed", zap.Int64("chatID", msg.Chat.ID), zap.Error(err))
	}
}

func (r *Router) handleWeather(ctx context.Context, msg *tgbotapi.Message) {
	location := strings.TrimSpace(msg.CommandArguments())
	if location == "" {
		r.reply(msg, weatherUsageText)
		return
	}

	fctx, cancel := context.WithTimeout(ctx, r.deps.FetchTimeout)
	defer cancel()
	snap, err := r.deps.Weather.FetchCurrent(fctx, location)
	if err != nil {
		r.log.Info("interactive fetch failed", zap.String("location", location), zap.Error(err))
		r.reply(msg, fetchFailedText)
		return
	}
	r.reply(msg, report.Build(mention(msg), snap, r.deps.Location))
}

func (r *Router) handleSetLocation(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	userID := msg.From.ID

	location, clock, err := parseSetLocationArgs(msg.CommandArguments())
	if err != nil {
		r.reply(msg, setLocationUsageText)
		return
	}
	// Time is checked before the provider is asked about the location.
	if _, err := domain.ParseTimeOfDay(clock); err != nil {
		r.reply(msg, invalidTimeText)
		return
	}

	fctx, cancel := context.WithTimeout(ctx, r.deps.FetchTimeout)
	defer cancel()
	snap, err := r.deps.Weather.FetchCurrent(fctx, location)
	if err != nil {
		r.log.Info("location rejected", zap.Int64("userID", userID), zap.String("location", location), zap.Error(err))
		r.reply(msg, invalidLocationText)
		return
	}

	// Reports go to the chat the command came from; private chats mean DM.
	var channelID *int64
	if !msg.Chat.IsPrivate() {
		id := msg.Chat.ID
		channelID = &id
	}

	pref, err := r.deps.Prefs.Set(ctx, userID, mention(msg), location, clock, channelID)
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		r.reply(msg, "Invalid input: "+verr.Reason)
		return
	case err != nil:
		r.log.Error("save preference failed", zap.Int64("userID", userID), zap.Error(err))
		r.reply(msg, saveFailedText)
		return
	}

	task, err := r.deps.Scheduler.Schedule(userID, pref.PreferredTime)
	if err != nil {
		r.log.Error("schedule failed", zap.Int64("userID", userID), zap.Error(err))
		r.reply(msg, saveFailedText)
		return
	}

	r.reply(msg, fmt.Sprintf(setLocationOKFmt,
		snap.Location,
		pref.PreferredTime,
		r.deps.Location,
		domain.LocalizeTime(task.NextFireAt, r.deps.Location),
	))
}

func (r *Router) handleStatus(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	pref, ok := r.deps.Prefs.Get(msg.From.ID)
	if !ok {
		r.reply(msg, noPreferenceText)
		return
	}

	dest := "direct message"
	if pref.ChannelID != nil {
		dest = fmt.Sprintf("chat %d", *pref.ChannelID)
	}
	next := "—"
	if t, ok := r.deps.Scheduler.NextFireAt(pref.UserID); ok {
		next = domain.LocalizeTime(t, r.deps.Location)
	}
	r.reply(msg, fmt.Sprintf(statusFmt, pref.Location, pref.PreferredTime, r.deps.Location, dest, next))
}

func (r *Router) handleStop(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	userID := msg.From.ID

	removed, err := r.deps.Prefs.Delete(ctx, userID)
	if err != nil {
		r.log.Error("delete preference failed", zap.Int64("userID", userID), zap.Error(err))
		r.reply(msg, saveFailedText)
		return
	}
	r.deps.Scheduler.Cancel(userID)
	if !removed {
		r.reply(msg, noPreferenceText)
		return
	}
	r.reply(msg, stoppedText)
}
