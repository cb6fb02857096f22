package accounting

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Cadence is the recurrence rule of a recurring template
type Cadence string

const (
	CadenceWeekly     Cadence = "weekly"
	CadenceMonthly    Cadence = "monthly"
	CadenceQuarterly  Cadence = "quarterly"
	CadenceYearly     Cadence = "yearly"
	CadenceCustomDays Cadence = "customDays"
)

// DefaultIntervalDays is used by customDays templates that carry no interval
const DefaultIntervalDays = 30

// DateLayout is the civil date format used for template dates and report ranges
const DateLayout = "2006-01-02"

// IsValid checks if the cadence is a known recurrence rule
func (c Cadence) IsValid() bool {
	switch c {
	case CadenceWeekly, CadenceMonthly, CadenceQuarterly, CadenceYearly, CadenceCustomDays:
		return true
	}
	return false
}

// String returns the string representation of Cadence
func (c Cadence) String() string {
	return string(c)
}

// Step advances t by exactly one period in civil time, in t's location.
// Month arithmetic uses native date normalization: Jan 31 plus one month is
// Mar 3 (Mar 2 in leap years), never clamped to the end of February.
// Unknown cadences fall back to the day interval.
func (c Cadence) Step(t time.Time, intervalDays int) time.Time {
	switch c {
	case CadenceWeekly:
		return t.AddDate(0, 0, 7)
	case CadenceMonthly:
		return t.AddDate(0, 1, 0)
	case CadenceQuarterly:
		return t.AddDate(0, 3, 0)
	case CadenceYearly:
		return t.AddDate(1, 0, 0)
	default:
		if intervalDays <= 0 {
			intervalDays = DefaultIntervalDays
		}
		return t.AddDate(0, 0, intervalDays)
	}
}

// ParseTimeOfDay parses a 24-hour "HH:MM" string
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("time of day %q must be HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

// ParseDate parses a YYYY-MM-DD civil date at midnight in loc
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
}

// CombineDateTime builds the instant for a civil date and HH:MM time in loc
func CombineDateTime(date, timeOfDay string, loc *time.Location) (time.Time, error) {
	day, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	hour, minute, err := ParseTimeOfDay(timeOfDay)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location()), nil
}

// EndOfDay returns the last representable instant of t's civil day
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
