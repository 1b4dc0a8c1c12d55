package config

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/joanne1229/DressToWeather/internal/domain"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken       string        `envconfig:"BOT_TOKEN" required:"true"`
	WeatherAPIKey  string        `envconfig:"WEATHER_API_KEY" required:"true"`
	WeatherBaseURL string        `envconfig:"WEATHER_BASE_URL" default:"https://api.openweathermap.org/data/2.5"`
	WeatherTimeout time.Duration `envconfig:"WEATHER_TIMEOUT" default:"10s"`
	FireTimeout    time.Duration `envconfig:"FIRE_TIMEOUT" default:"30s"`

	// ScheduleTZ is the zone HH:MM preferences are read in.
	ScheduleTZ string `envconfig:"SCHEDULE_TZ" default:"UTC"`

	// DBPath is the SQLite mirror of preferences; empty keeps them in memory only.
	DBPath string `envconfig:"DB_PATH" default:"./data/dresstoweather.db"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`  // debug|info|warn|error
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"` // json|console

	// HTTPAddr serves health and schedule status; loopback unless exposed on purpose.
	HTTPAddr string `envconfig:"HTTP_ADDR" default:"127.0.0.1:8080"`

	location *time.Location
}

// Load reads an optional .env file, then environment variables into Config.
// Every failure is a *domain.StartupFailure.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, &domain.StartupFailure{Stage: "config", Err: err}
	}
	if err := cfg.validate(); err != nil {
		return cfg, &domain.StartupFailure{Stage: "config", Err: err}
	}
	loc, err := domain.ValidateTZ(cfg.ScheduleTZ)
	if err != nil {
		return cfg, &domain.StartupFailure{Stage: "config", Err: err}
	}
	cfg.location = loc
	return cfg, nil
}

// validate rejects credentials that are set but empty.
func (c Config) validate() error {
	if c.BotToken == "" {
		return errors.New("BOT_TOKEN is required")
	}
	if c.WeatherAPIKey == "" {
		return errors.New("WEATHER_API_KEY is required")
	}
	return nil
}

// Location is the reference zone for preferred delivery times.
func (c Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}
