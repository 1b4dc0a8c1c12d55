package weather

import (
	"context"
	"time"
)

// Snapshot is the current conditions for one location, in imperial units.
type Snapshot struct {
	Location    string // resolved "City, CC"
	Temperature float64
	FeelsLike   float64
	WindSpeed   float64 // mph
	Condition   string  // short description, e.g. "light rain"
	FetchedAt   time.Time

	// Precipitation is the first expected rain or snow within the forecast
	// horizon, nil when none is expected or the forecast was unavailable.
	Precipitation *Precipitation
}

// Precipitation describes an upcoming forecast slot with rain or snow.
type Precipitation struct {
	At          time.Time
	Description string
	Probability float64 // 0..1
}

// Provider fetches current conditions for a free-text location.
// Every failure is a *domain.FetchFailure.
type Provider interface {
	FetchCurrent(ctx context.Context, location string) (Snapshot, error)
}
