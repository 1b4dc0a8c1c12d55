package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserPreference is what a user registered for daily weather delivery.
type UserPreference struct {
	UserID        int64
	UserName      string    // mention used in reports (@username or first name)
	Location      string    // passed verbatim to the weather provider
	PreferredTime TimeOfDay // wall clock in the deployment reference zone
	ChannelID     *int64    // nil means direct message to the user
	UpdatedAt     time.Time // UTC
}

// Destination returns the chat scheduled reports go to.
// Without a stored channel it is the user's private chat.
func (p UserPreference) Destination() int64 {
	if p.ChannelID != nil {
		return *p.ChannelID
	}
	return p.UserID
}

// ScheduledTask is a read-only view of one armed recurring delivery.
type ScheduledTask struct {
	ID         uuid.UUID `json:"id"`
	UserID     int64     `json:"user_id"`
	NextFireAt time.Time `json:"next_fire_at"`
}
