package core

import (
	"time"
)

// Granularity defines the calendar period used to bucket run outcomes.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
	GranularityYear  Granularity = "year"
)

// ParseGranularity validates a user-supplied granularity string.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case GranularityDay, GranularityWeek, GranularityMonth, GranularityYear:
		return Granularity(s), nil
	default:
		return "", NewInvalidArgumentError("granularity", "must be one of day, week, month, year")
	}
}

// TruncateUTC truncates a timestamp to the start of its period in UTC.
// Weeks start on Monday, matching Postgres date_trunc('week', ...).
func (g Granularity) TruncateUTC(t time.Time) time.Time {
	t = t.UTC()
	switch g {
	case GranularityDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case GranularityWeek:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
		return day.AddDate(0, 0, -offset)
	case GranularityMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case GranularityYear:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
}

// Lookback returns the cutoff timestamp for a "since one period" window
// ending at the given reference time.
func (g Granularity) Lookback(from time.Time) time.Time {
	switch g {
	case GranularityDay:
		return from.AddDate(0, 0, -1)
	case GranularityWeek:
		return from.AddDate(0, 0, -7)
	case GranularityMonth:
		return from.AddDate(0, -1, 0)
	case GranularityYear:
		return from.AddDate(-1, 0, 0)
	default:
		return from.AddDate(0, -1, 0)
	}
}
