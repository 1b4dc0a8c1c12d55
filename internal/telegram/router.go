package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/joanne1229/DressToWeather/internal/domain"
	"github.com/joanne1229/DressToWeather/internal/store"
	"github.com/joanne1229/DressToWeather/internal/weather"
)

const defaultFetchTimeout = 10 * time.Second

// Scheduler is what the command layer needs from scheduler.Scheduler.
type Scheduler interface {
	Schedule(userID int64, at domain.TimeOfDay) (domain.ScheduledTask, error)
	Cancel(userID int64) bool
	NextFireAt(userID int64) (time.Time, bool)
}

// Deps is the application context the command layer works against.
type Deps struct {
	Prefs        *store.PreferenceStore
	Scheduler    Scheduler
	Weather      weather.Provider
	Sender       *Sender
	Location     *time.Location // reference zone for preferred times
	FetchTimeout time.Duration
}

// Router wires Telegram updates to command handlers.
type Router struct {
	log  *zap.Logger
	deps Deps
}

// NewRouter creates a new Telegram router.
func NewRouter(log *zap.Logger, deps Deps) *Router {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.FetchTimeout <= 0 {
		deps.FetchTimeout = defaultFetchTimeout
	}
	return &Router{log: log, deps: deps}
}

// HandleUpdate routes a single update to the matching command handler.
// Anything that is not a command is ignored.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}

	switch msg.Command() {
	case "start", "help":
		r.handleHelp(msg)
	case "weather":
		r.handleWeather(ctx, msg)
	case "setlocation":
		r.handleSetLocation(ctx, msg)
	case "status":
		r.handleStatus(msg)
	case "stop":
		r.handleStop(ctx, msg)
	default:
		r.reply(msg, unknownCommandText)
	}
}
