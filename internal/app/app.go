package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/joanne1229/DressToWeather/internal/config"
	"github.com/joanne1229/DressToWeather/internal/domain"
	"github.com/joanne1229/DressToWeather/internal/httpapi"
	"github.com/joanne1229/DressToWeather/internal/scheduler"
	"github.com/joanne1229/DressToWeather/internal/store"
	"github.com/joanne1229/DressToWeather/internal/telegram"
	"github.com/joanne1229/DressToWeather/internal/weather"
)

const shutdownTimeout = 5 * time.Second

// App owns every long-lived component of the bot.
type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	weather weather.Provider

	repo   *store.SQLiteRepo
	prefs  *store.PreferenceStore
	sched  *scheduler.Scheduler
	router *telegram.Router
	disp   *telegram.Dispatcher
	http   *fiber.App
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, &domain.StartupFailure{Stage: "telegram", Err: err}
	}
	bot.Debug = false

	client := &http.Client{Timeout: cfg.WeatherTimeout}
	provider := weather.NewOpenWeather(client, cfg.WeatherAPIKey, cfg.WeatherBaseURL, log)

	return &App{cfg: cfg, log: log, bot: bot, weather: provider}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting dresstoweather",
		zap.String("bot", a.bot.Self.UserName),
		zap.String("http", a.cfg.HTTPAddr),
		zap.String("zone", a.cfg.Location().String()),
	)

	var persist store.Persister
	if a.cfg.DBPath != "" {
		repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
		if err != nil {
			a.log.Error("open sqlite failed", zap.Error(err))
			return &domain.StartupFailure{Stage: "store", Err: err}
		}
		a.repo = repo
		persist = repo
		a.log.Info("sqlite ready", zap.String("path", a.cfg.DBPath))
	}

	a.prefs = store.NewPreferenceStore(persist)
	loaded, err := a.prefs.Load(ctx)
	if err != nil {
		a.closeRepo()
		return &domain.StartupFailure{Stage: "store", Err: err}
	}

	sender := telegram.NewSender(a.bot, a.log, a.cfg.Location())
	a.sched = scheduler.New(a.prefs, a.weather, sender, a.log, scheduler.Options{
		Location:    a.cfg.Location(),
		FireTimeout: a.cfg.FireTimeout,
	})
	armed := a.sched.Rehydrate(a.prefs.All())
	a.log.Info("schedules restored", zap.Int("loaded", loaded), zap.Int("armed", armed))

	a.router = telegram.NewRouter(a.log, telegram.Deps{
		Prefs:        a.prefs,
		Scheduler:    a.sched,
		Weather:      a.weather,
		Sender:       sender,
		Location:     a.cfg.Location(),
		FetchTimeout: a.cfg.WeatherTimeout,
	})

	a.disp = telegram.NewDispatcher(a.router.HandleUpdate)

	a.http = httpapi.New(a.sched)
	go func() {
		if err := a.http.Listen(a.cfg.HTTPAddr); err != nil {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")
			a.shutdown()
			return nil

		case upd, ok := <-updCh:
			if !ok {
				a.shutdown()
				return nil
			}
			a.disp.Dispatch(ctx, upd)
		}
	}
}

// shutdown stops intake first, then lets in-flight commands and deliveries
// finish before the mirror is closed.
func (a *App) shutdown() {
	a.bot.StopReceivingUpdates()
	a.disp.Wait()
	a.sched.Stop()

	shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	err := a.http.ShutdownWithContext(shCtx)
	cancel()
	if err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}
	a.closeRepo()
}

func (a *App) closeRepo() {
	if a.repo == nil {
		return
	}
	if err := a.repo.Close(); err != nil {
		a.log.Warn("sqlite close error", zap.Error(err))
	}
}
