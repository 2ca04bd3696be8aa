// Package recur generates the bounded occurrence-date sequence for a
// recurring task and the derived iCalendar rule string.
package recur

import "time"

// DefaultMaxOccurrences is the hard safety cap on expansion. Expansion is
// silently truncated at the cap, never an error.
const DefaultMaxOccurrences = 100

// Expand returns the ordered occurrence dates for a recurrence rule,
// starting from the anchor (always included, even when it lies past the
// until bound). The sequence advances by interval units per step:
// daily adds interval days, weekly adds 7*interval days, monthly adds
// interval calendar months. Month arithmetic rolls over past short months
// (Jan 31 + 1 month lands in early March) and the rollover compounds on
// later instances; this mirrors the behavior the stored data was created
// against, so it must not be "fixed" to clamp at month end.
//
// A date that overshoots until is excluded and stops the expansion. The
// result never holds more than max dates (DefaultMaxOccurrences when
// max <= 0). An interval below 1 is treated as 1 so the sequence always
// advances.
func Expand(recurrenceType string, interval int, anchor time.Time, until *time.Time, max int) []time.Time {
	if max <= 0 {
		max = DefaultMaxOccurrences
	}
	switch recurrenceType {
	case "daily", "weekly", "monthly":
	default:
		// "none", empty, or unrecognized: just the anchor.
		return []time.Time{anchor}
	}
	if interval < 1 {
		interval = 1
	}

	dates := make([]time.Time, 0, 8)
	dates = append(dates, anchor)

	current := anchor
	for len(dates) < max {
		switch recurrenceType {
		case "daily":
			current = current.AddDate(0, 0, interval)
		case "weekly":
			current = current.AddDate(0, 0, 7*interval)
		case "monthly":
			current = current.AddDate(0, interval, 0)
		}
		if until != nil && current.After(*until) {
			break
		}
		dates = append(dates, current)
	}
	return dates
}
