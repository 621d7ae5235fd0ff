package worktime

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"workhours/apperror"
)

// Clock is a time of day with second precision, stored as seconds after
// midnight. It has no date and no location.
type Clock int32

const secondsPerDay = 24 * 60 * 60

var clockLayouts = []string{"15:04:05", "15:04", "15:04:05.999999999"}

func NewClock(hour, minute, second int) Clock {
	return Clock(hour*3600 + minute*60 + second)
}

// ParseClock accepts "HH:MM" (HTML time inputs) and "HH:MM:SS" (database).
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, apperror.Validation("time is required")
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewClock(t.Hour(), t.Minute(), t.Second()), nil
		}
	}
	return 0, apperror.Validation("invalid time %q, expected HH:MM", s)
}

func (c Clock) Hour() int   { return int(c) / 3600 }
func (c Clock) Minute() int { return int(c) % 3600 / 60 }
func (c Clock) Second() int { return int(c) % 60 }

func (c Clock) Before(other Clock) bool { return c < other }

// Duration is the offset of c from midnight.
func (c Clock) Duration() time.Duration {
	return time.Duration(c) * time.Second
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour(), c.Minute(), c.Second())
}

// Short is the HH:MM form used by time inputs.
func (c Clock) Short() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c Clock) Valid() bool {
	return c >= 0 && c < secondsPerDay
}

func (c Clock) Value() (driver.Value, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("clock out of range: %d", int32(c))
	}
	return c.String(), nil
}

func (c *Clock) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = 0
		return nil
	case time.Time:
		*c = NewClock(v.Hour(), v.Minute(), v.Second())
		return nil
	case []byte:
		return c.scanString(string(v))
	case string:
		return c.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into worktime.Clock", src)
	}
}

func (c *Clock) scanString(s string) error {
	parsed, err := ParseClock(s)
	if err != nil {
		return fmt.Errorf("scan clock: %w", err)
	}
	*c = parsed
	return nil
}
