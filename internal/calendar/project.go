package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"taskcal/internal/domain"
	"taskcal/internal/recur"
)

// DefaultTimedDuration is the synthesized length of a timed occurrence
// whose task has a start time but no end. A product default, not a law:
// Options.DefaultDuration overrides it.
const DefaultTimedDuration = time.Hour

// Options tune the projection.
type Options struct {
	// DefaultDuration is the end fallback for timed tasks without an
	// explicit end. Zero means DefaultTimedDuration.
	DefaultDuration time.Duration
	// MaxOccurrences caps recurrence expansion. Zero means
	// recur.DefaultMaxOccurrences.
	MaxOccurrences int
}

func (o Options) defaultDuration() time.Duration {
	if o.DefaultDuration > 0 {
		return o.DefaultDuration
	}
	return DefaultTimedDuration
}

// Project turns one task into its full ordered occurrence set. A task with
// no resolvable start produces no occurrences; that is invisibility, not
// an error. The projector never repairs inverted ranges (end before
// start) — those are kept out by validation at the data-entry boundary,
// and its behavior on them is undefined.
func Project(t domain.Task, opts Options) []domain.Occurrence {
	start, end, allDay, ok := resolveTiming(t, opts.defaultDuration())
	if !ok {
		return nil
	}

	base := domain.Occurrence{
		ID:              t.ID,
		Title:           t.Title,
		AllDay:          allDay,
		BackgroundColor: ResolveColor(t),
		BorderColor:     ResolveColor(t),
		TextColor:       EventTextColor,
		Editable:        true,
		Task:            t,
	}

	if t.RecurrenceType == "" || t.RecurrenceType == domain.RecurrenceNone {
		occ := base
		occ.Start = formatInstant(start, allDay)
		occ.End = formatInstant(end, allDay)
		return []domain.Occurrence{occ}
	}

	var until *time.Time
	if t.RecurrenceEndDate != nil {
		if bound, err := ParseDate(*t.RecurrenceEndDate); err == nil {
			until = &bound
		}
	}
	dates := recur.Expand(t.RecurrenceType, t.RecurrenceInterval, start, until, opts.MaxOccurrences)

	duration := end.Sub(start)
	occurrences := make([]domain.Occurrence, 0, len(dates))
	for i, d := range dates {
		occ := base
		occ.Start = formatInstant(d, allDay)
		occ.End = formatInstant(d.Add(duration), allDay)
		occ.OccurrenceIndex = i
		if i > 0 {
			occ.ID = fmt.Sprintf("%s_%d", t.ID, i)
			occ.IsRecurrence = true
		}
		occurrences = append(occurrences, occ)
	}
	return occurrences
}

// resolveTiming classifies the task as timed or all-day and computes its
// effective start/end instants. The classification is re-derived on every
// projection, never stored.
func resolveTiming(t domain.Task, defaultDuration time.Duration) (start, end time.Time, allDay, ok bool) {
	if s, found := timedStart(t); found {
		start = s
		end, ok = timedEnd(t, start)
		if !ok {
			end = start.Add(defaultDuration)
		}
		return start, end, false, true
	}

	// All-day: start date, falling back to the creation date. This
	// fallback is the only way a task displays without a start date.
	var startDate time.Time
	switch {
	case t.StartDate != nil:
		d, err := ParseDate(*t.StartDate)
		if err != nil {
			return time.Time{}, time.Time{}, false, false
		}
		startDate = d
	case t.CreatedAt != "":
		created, err := time.Parse(time.RFC3339, t.CreatedAt)
		if err != nil {
			return time.Time{}, time.Time{}, false, false
		}
		local := created.Local()
		startDate = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.Local)
	default:
		return time.Time{}, time.Time{}, false, false
	}

	if t.EndDate != nil {
		if d, err := ParseDate(*t.EndDate); err == nil {
			return startDate, d, true, true
		}
	}
	// The display convention reads an all-day end as exclusive, so a
	// single-day task needs end = start + 1 day to paint one cell.
	return startDate, startDate.AddDate(0, 0, 1), true, true
}

// timedStart resolves the combined start instant: an explicit combined
// timestamp wins, otherwise a (date, time-of-day) pair. Either presence
// makes the task timed.
func timedStart(t domain.Task) (time.Time, bool) {
	if t.StartDateTime != nil {
		if s, err := ParseDateTime(*t.StartDateTime); err == nil {
			return s, true
		}
	}
	if t.StartDate != nil && t.StartTime != nil {
		if d, err := ParseDate(*t.StartDate); err == nil {
			return CombineDateTime(d, *t.StartTime), true
		}
	}
	return time.Time{}, false
}

func timedEnd(t domain.Task, start time.Time) (time.Time, bool) {
	if t.EndDateTime != nil {
		if e, err := ParseDateTime(*t.EndDateTime); err == nil {
			return e, true
		}
	}
	if t.EndTime != nil {
		endDate := start
		if t.EndDate != nil {
			if d, err := ParseDate(*t.EndDate); err == nil {
				endDate = d
			}
		}
		return CombineDateTime(endDate, *t.EndTime), true
	}
	return time.Time{}, false
}

func formatInstant(t time.Time, allDay bool) string {
	if allDay {
		return FormatDate(t)
	}
	return FormatDateTime(t)
}

// Window parses an occurrence's start/end back into instants, honoring
// its all-day/timed formatting.
func Window(o domain.Occurrence) (start, end time.Time, err error) {
	if o.AllDay {
		if start, err = ParseDate(o.Start); err != nil {
			return
		}
		end, err = ParseDate(o.End)
		return
	}
	if start, err = ParseDateTime(o.Start); err != nil {
		return
	}
	end, err = ParseDateTime(o.End)
	return
}

// SplitOccurrenceID recovers the source task id and instance index from a
// displayed occurrence id. The anchor (and any non-recurring occurrence)
// has index 0.
func SplitOccurrenceID(id string) (taskID string, index int) {
	if i := strings.LastIndex(id, "_"); i >= 0 {
		if n, err := strconv.Atoi(id[i+1:]); err == nil && n > 0 {
			return id[:i], n
		}
	}
	return id, 0
}
