package store

import (
	"context"

	"github.com/joanne1229/DressToWeather/internal/domain"
)

// Persister is a durable mirror of the preference table.
// The in-memory PreferenceStore stays authoritative while the process runs;
// the mirror only lets schedules be re-armed after a restart.
type Persister interface {
	SavePreference(ctx context.Context, p domain.UserPreference) error
	DeletePreference(ctx context.Context, userID int64) error
	LoadPreferences(ctx context.Context) ([]domain.UserPreference, error)
	Close() error
}
