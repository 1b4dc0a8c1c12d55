package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// hhmmPattern is a strict 24-hour clock: two-digit hour 00-23, two-digit minute 00-59.
var hhmmPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// TimeOfDay is a wall-clock time without a date or zone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// String renders HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On returns the instant at this time of day on the calendar date of day, in loc.
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	d := day.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, 0, 0, loc)
}

// IsClock reports whether s is a strict HH:MM value.
func IsClock(s string) bool {
	return hhmmPattern.MatchString(s)
}

// ParseTimeOfDay parses a strict HH:MM string ("7:30", "24:00" and "07:30:00" are rejected).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	m := hhmmPattern.FindStringSubmatch(s)
	if m == nil {
		return TimeOfDay{}, NewValidationError("time", fmt.Sprintf("%q is not a 24-hour HH:MM time", s))
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	return TimeOfDay{Hour: h, Minute: min}, nil
}

// MustTimeOfDay is ParseTimeOfDay for constants and tests.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// ValidateTZ checks that the tz is a valid IANA location.
func ValidateTZ(tz string) (*time.Location, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", tz, err)
	}
	return loc, nil
}

// LocalizeTime formats t in loc as "Mon 02 Jan 15:04".
func LocalizeTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("Mon 02 Jan 15:04")
}
