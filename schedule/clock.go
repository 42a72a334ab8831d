package schedule

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Clock is a time of day with minute resolution, counted in minutes since
// midnight.
type Clock int

var ErrInvalidClock = errors.New("invalid time of day")

// ParseClock accepts "HH:MM" and "HH:MM:SS". Seconds are discarded.
func ParseClock(s string) (Clock, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			return Clock(t.Hour()*60 + t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Value implements driver.Valuer for TIME columns.
func (c Clock) Value() (driver.Value, error) {
	return c.String(), nil
}

// Scan implements sql.Scanner. lib/pq hands TIME columns over as time.Time,
// other drivers as text.
func (c *Clock) Scan(value any) error {
	switch v := value.(type) {
	case time.Time:
		*c = Clock(v.Hour()*60 + v.Minute())
		return nil
	case []byte:
		return c.parse(string(v))
	case string:
		return c.parse(v)
	default:
		return fmt.Errorf("scan clock: unsupported type %T", value)
	}
}

func (c *Clock) parse(s string) error {
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return c.parse(s)
}
