package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/joanne1229/DressToWeather/internal/domain"
)

const (
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

	// forecastSlots covers 12 hours of the 3-hourly forecast.
	forecastSlots   = 4
	forecastHorizon = 12 * time.Hour
	likelyPrecip    = 0.5
)

var (
	errUnknownLocation = errors.New("location not found")
	errUnexpected      = errors.New("unexpected status code")
	errEmptyPayload    = errors.New("payload misses required fields")
)

// OpenWeather implements Provider against the OpenWeatherMap 2.5 API.
type OpenWeather struct {
	apiKey  string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
	log     *zap.Logger
	now     func() time.Time
}

// NewOpenWeather builds a client. An empty baseURL selects the public API.
func NewOpenWeather(client *http.Client, apiKey, baseURL string, log *zap.Logger) *OpenWeather {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &OpenWeather{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		circuit: cb,
		log:     log,
		now:     time.Now,
	}
}

type currentPayload struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main *struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
}

type forecastPayload struct {
	List []struct {
		Dt      int64   `json:"dt"`
		Pop     float64 `json:"pop"`
		Weather []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"list"`
}

// FetchCurrent returns current conditions plus an optional 12h precipitation warning.
func (p *OpenWeather) FetchCurrent(ctx context.Context, location string) (Snapshot, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return Snapshot{}, &domain.FetchFailure{Location: location, Err: errUnknownLocation}
	}

	var cur currentPayload
	if err := p.get(ctx, "/weather", location, &cur); err != nil {
		return Snapshot{}, &domain.FetchFailure{Location: location, Err: err}
	}
	if cur.Main == nil || len(cur.Weather) == 0 {
		return Snapshot{}, &domain.FetchFailure{Location: location, Err: errEmptyPayload}
	}

	snap := Snapshot{
		Location:    resolvedName(cur.Name, cur.Sys.Country, location),
		Temperature: cur.Main.Temp,
		FeelsLike:   cur.Main.FeelsLike,
		WindSpeed:   cur.Wind.Speed,
		Condition:   cur.Weather[0].Description,
		FetchedAt:   p.now().UTC(),
	}

	// The warning is optional; a forecast failure keeps the current report.
	var fc forecastPayload
	if err := p.get(ctx, "/forecast", location, &fc); err != nil {
		p.log.Warn("forecast unavailable", zap.String("location", location), zap.Error(err))
		return snap, nil
	}
	snap.Precipitation = upcomingPrecipitation(fc, snap.FetchedAt)
	return snap, nil
}

// get issues one request through the circuit breaker and decodes the JSON body into out.
func (p *OpenWeather) get(ctx context.Context, path, location string, out any) error {
	values := url.Values{}
	values.Set("q", location)
	values.Set("appid", p.apiKey)
	values.Set("units", "imperial")
	if path == "/forecast" {
		values.Set("cnt", fmt.Sprint(forecastSlots))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+values.Encode(), nil)
	if err != nil {
		return err
	}

	// An unknown city is a successful round trip for the breaker.
	result, err := p.circuit.Execute(func() (interface{}, error) {
		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		return err
	}

	resp := result.(*http.Response)
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errUnknownLocation
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func resolvedName(name, country, fallback string) string {
	switch {
	case name == "":
		return fallback
	case country == "":
		return name
	default:
		return name + ", " + country
	}
}

// upcomingPrecipitation picks the first slot within the horizon that has
// rain, drizzle, thunderstorm or snow, or a likely chance of precipitation.
func upcomingPrecipitation(fc forecastPayload, now time.Time) *Precipitation {
	limit := now.Add(forecastHorizon)
	for _, slot := range fc.List {
		at := time.Unix(slot.Dt, 0).UTC()
		if at.After(limit) {
			break
		}
		desc := ""
		wet := false
		if len(slot.Weather) > 0 {
			desc = slot.Weather[0].Description
			switch slot.Weather[0].Main {
			case "Rain", "Drizzle", "Thunderstorm", "Snow":
				wet = true
			}
		}
		if wet || slot.Pop >= likelyPrecip {
			if desc == "" {
				desc = "precipitation"
			}
			return &Precipitation{At: at, Description: desc, Probability: slot.Pop}
		}
	}
	return nil
}
