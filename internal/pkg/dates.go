package pkg

import (
	"time"
)

// ParseDate reads an RFC 3339 timestamp or a YYYY-MM-DD date as UTC. When
// endOfDay is set, a bare date resolves to the last microsecond of that day
// so an inclusive upper bound covers the whole day; timestamps are kept as is.
func ParseDate(value string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC().Truncate(time.Microsecond), nil
	}
	day, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		return EndOfDay(day), nil
	}
	return day.UTC(), nil
}

// EndOfDay returns the last instant of t's UTC day at the microsecond
// resolution timestamps are stored with.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC).Add(-time.Microsecond)
}
