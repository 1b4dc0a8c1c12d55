package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/joanne1229/DressToWeather/internal/app"
	"github.com/joanne1229/DressToWeather/internal/config"
	"github.com/joanne1229/DressToWeather/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger is built from config, so this one goes straight to stderr.
		_, _ = os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(2)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger init error: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	application, err := app.New(cfg, log)
	if err != nil {
		log.Fatal("app init failed", zap.Error(err))
	}

	if err := application.Run(context.Background()); err != nil {
		log.Fatal("app run failed", zap.Error(err))
	}
}
