package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/joanne1229/DressToWeather/internal/domain"
)

// setRequest is the validated shape of a Set call.
type setRequest struct {
	UserID        int64  `validate:"required"`
	Location      string `validate:"required,max=128"`
	PreferredTime string `validate:"required,hhmm"`
}

// PreferenceStore is the in-memory table of user preferences.
// It is safe for concurrent use; every operation is atomic per call.
// Writers are serialized by writeMu for the whole mirror round trip, while
// mu guards only the map, so readers never wait on disk I/O.
type PreferenceStore struct {
	writeMu  sync.Mutex
	mu       sync.RWMutex
	prefs    map[int64]domain.UserPreference
	validate *validator.Validate
	persist  Persister // optional
	now      func() time.Time
}

// NewPreferenceStore creates an empty store. persist may be nil.
func NewPreferenceStore(persist Persister) *PreferenceStore {
	v := validator.New()
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return domain.IsClock(fl.Field().String())
	})
	return &PreferenceStore{
		prefs:    make(map[int64]domain.UserPreference),
		validate: v,
		persist:  persist,
		now:      time.Now,
	}
}

// Set validates and upserts a user's preference. On a validation error
// nothing is mutated. The mirror, if any, is written before memory so a
// failed write leaves both unchanged.
func (s *PreferenceStore) Set(ctx context.Context, userID int64, userName, location, preferredTime string, channelID *int64) (domain.UserPreference, error) {
	req := setRequest{
		UserID:        userID,
		Location:      strings.TrimSpace(location),
		PreferredTime: strings.TrimSpace(preferredTime),
	}
	if err := s.validate.Struct(req); err != nil {
		return domain.UserPreference{}, toValidationError(err)
	}
	at, err := domain.ParseTimeOfDay(req.PreferredTime)
	if err != nil {
		return domain.UserPreference{}, err
	}

	p := domain.UserPreference{
		UserID:        userID,
		UserName:      userName,
		Location:      req.Location,
		PreferredTime: at,
		ChannelID:     channelID,
		UpdatedAt:     s.now().UTC(),
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.persist != nil {
		if err := s.persist.SavePreference(ctx, p); err != nil {
			return domain.UserPreference{}, fmt.Errorf("persist preference: %w", err)
		}
	}

	s.mu.Lock()
	s.prefs[userID] = p
	s.mu.Unlock()
	return p, nil
}

// Get returns the current preference for userID.
func (s *PreferenceStore) Get(userID int64) (domain.UserPreference, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prefs[userID]
	return p, ok
}

// All returns a snapshot of every preference ordered by user id.
func (s *PreferenceStore) All() []domain.UserPreference {
	s.mu.RLock()
	res := make([]domain.UserPreference, 0, len(s.prefs))
	for _, p := range s.prefs {
		res = append(res, p)
	}
	s.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool { return res[i].UserID < res[j].UserID })
	return res
}

// Delete removes a user's preference. It reports whether one existed.
func (s *PreferenceStore) Delete(ctx context.Context, userID int64) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, ok := s.Get(userID); !ok {
		return false, nil
	}
	if s.persist != nil {
		if err := s.persist.DeletePreference(ctx, userID); err != nil {
			return false, fmt.Errorf("delete persisted preference: %w", err)
		}
	}

	s.mu.Lock()
	delete(s.prefs, userID)
	s.mu.Unlock()
	return true, nil
}

// Load replaces the in-memory table with the mirror's contents.
// Without a mirror it is a no-op.
func (s *PreferenceStore) Load(ctx context.Context) (int, error) {
	if s.persist == nil {
		return 0, nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	prefs, err := s.persist.LoadPreferences(ctx)
	if err != nil {
		return 0, fmt.Errorf("load preferences: %w", err)
	}

	table := make(map[int64]domain.UserPreference, len(prefs))
	for _, p := range prefs {
		table[p.UserID] = p
	}
	s.mu.Lock()
	s.prefs = table
	s.mu.Unlock()
	return len(prefs), nil
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.NewValidationError("", err.Error())
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return domain.NewValidationError(strings.ToLower(fe.Field()), "is required")
	case "max":
		return domain.NewValidationError(strings.ToLower(fe.Field()), "must be at most "+fe.Param()+" characters")
	case "hhmm":
		return domain.NewValidationError("time", fmt.Sprintf("%q is not a 24-hour HH:MM time", fe.Value()))
	default:
		return domain.NewValidationError(strings.ToLower(fe.Field()), "is invalid")
	}
}
