package schedule

import (
	"fmt"
	"time"
)

// Date is a calendar date with no time-of-day and no timezone. Dates cross
// the API boundary as "2006-01-02" strings and are compared as plain
// calendar values, never through a timezone-aware instant.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate constructs a normalized calendar date. Out-of-range components
// roll over the same way time.Date rolls them.
func NewDate(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDate parses a "2006-01-02" value.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return Date{}, fmt.Errorf("schedule: invalid date %q: %w", value, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// DateOf truncates a wall-clock instant to its calendar date in the
// instant's own location.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Weekday reports the day of the week the date falls on.
func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

// AddDays returns the date n days later (earlier when n is negative).
func (d Date) AddDays(n int) Date {
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Before reports whether d falls strictly earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// After reports whether d falls strictly later than other.
func (d Date) After(other Date) bool {
	return other.Before(d)
}

// IsZero reports whether the date is the zero value.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
// It carries no date and no timezone. The type does not forbid interval
// endpoints appearing out of order; validation surfaces that instead.
type TimeOfDay int

// Midnight is the zero wall-clock time.
const Midnight TimeOfDay = 0

// NewTimeOfDay builds a wall-clock time from hour and minute.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses a "15:04" value.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("schedule: invalid time %q: %w", value, err)
	}
	return NewTimeOfDay(t.Hour(), t.Minute()), nil
}

// Hour reports the hour component (0-23 for in-range values).
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute reports the minute component.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Clock renders the time in the 12-hour form used by conflict messages,
// e.g. "9:00 AM".
func (t TimeOfDay) Clock() string {
	hour := t.Hour() % 24
	suffix := "AM"
	switch {
	case hour == 0:
		hour = 12
	case hour == 12:
		suffix = "PM"
	case hour > 12:
		hour -= 12
		suffix = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", hour, t.Minute(), suffix)
}
