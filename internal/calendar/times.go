// Package calendar projects stored tasks into displayable occurrences and
// maps display-side edits back onto task fields. Everything here is pure:
// no storage, no clocks, no caching between calls.
package calendar

import (
	"strconv"
	"strings"
	"time"
)

// Wall-clock layouts. The system has no timezone handling; every value is
// local wall-clock, so combined timestamps carry no zone designator.
const (
	DateLayout     = "2006-01-02"
	ClockLayout    = "15:04"
	DateTimeLayout = "2006-01-02T15:04:05"
)

// ParseDate parses a date-only string to local midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.Local)
}

// ParseDateTime parses a combined timestamp. RFC3339 and minute-precision
// values are accepted for tolerance with imported data.
func ParseDateTime(s string) (time.Time, error) {
	for _, layout := range []string{DateTimeLayout, "2006-01-02T15:04", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	_, err := time.ParseInLocation(DateTimeLayout, s, time.Local)
	return time.Time{}, err
}

// CombineDateTime attaches a time-of-day string to a date. A malformed
// clock value degrades to midnight rather than failing.
func CombineDateTime(date time.Time, clock string) time.Time {
	h, m, s := parseClock(clock)
	return time.Date(date.Year(), date.Month(), date.Day(), h, m, s, 0, date.Location())
}

func parseClock(clock string) (h, m, s int) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0
	}
	h, errH := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	if errH != nil || errM != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, 0
	}
	if len(parts) == 3 {
		if v, err := strconv.Atoi(parts[2]); err == nil && v >= 0 && v <= 59 {
			s = v
		}
	}
	return h, m, s
}

// FormatDate renders the date part of an instant.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// FormatClock renders the time-of-day part of an instant.
func FormatClock(t time.Time) string { return t.Format(ClockLayout) }

// FormatDateTime renders a combined wall-clock timestamp.
func FormatDateTime(t time.Time) string { return t.Format(DateTimeLayout) }
